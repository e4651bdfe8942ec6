package repositories

import (
	"errors"

	"github.com/SL1dee36/Connect/internal/models"
	"gorm.io/gorm"
)

// FriendshipRepository defines the interface for friend-request and
// friendship data operations.
type FriendshipRepository interface {
	SendFriendRequest(senderID, recipientID uint) error
	AcceptFriendRequest(recipientID, senderID uint) error
	RejectFriendRequest(recipientID, senderID uint) error
	HasPendingRequest(senderID, recipientID uint) (bool, error)
	GetPendingRequestsFor(recipientID uint) ([]models.FriendRequest, error)
	IsFriend(userID, otherID uint) (bool, error)
	GetFriendIDs(userID uint) ([]uint, error)
	GetFriendOfFriendIDs(userID uint) ([]uint, error)
	HasMutualFriend(userID, otherID uint) (bool, error)
}

// PostgresFriendshipRepository implements FriendshipRepository for PostgreSQL
type PostgresFriendshipRepository struct {
	db *gorm.DB
}

// NewPostgresFriendshipRepository creates a new PostgresFriendshipRepository
func NewPostgresFriendshipRepository(db *gorm.DB) *PostgresFriendshipRepository {
	return &PostgresFriendshipRepository{db: db}
}

// SendFriendRequest creates a pending request from sender to recipient. When
// the two are already friends or an outgoing request is already pending, it
// silently does nothing; repeating the call leaves exactly one pending row.
func (r *PostgresFriendshipRepository) SendFriendRequest(senderID, recipientID uint) error {
	friends, err := r.IsFriend(senderID, recipientID)
	if err != nil {
		return err
	}
	if friends {
		return nil
	}

	pending, err := r.HasPendingRequest(senderID, recipientID)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	req := &models.FriendRequest{SenderID: senderID, RecipientID: recipientID}
	return r.db.Create(req).Error
}

// AcceptFriendRequest converts a pending request from sender into a
// friendship edge for both users. The lookup, the edge insert and the
// request delete run in one transaction so the edge and the request can
// never diverge. Requests in both directions are consumed: when the two
// users requested each other, accepting either request must leave no
// pending row behind. Returns gorm.ErrRecordNotFound when no such request
// exists.
func (r *PostgresFriendshipRepository) AcceptFriendRequest(recipientID, senderID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var req models.FriendRequest
		if err := tx.Where("sender_id = ? AND recipient_id = ?", senderID, recipientID).
			First(&req).Error; err != nil {
			return err
		}

		link := &models.Friendship{UserID1: senderID, UserID2: recipientID}
		if err := tx.Create(link).Error; err != nil {
			return err
		}

		return tx.Where(
			"(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			senderID, recipientID, recipientID, senderID,
		).Delete(&models.FriendRequest{}).Error
	})
}

// RejectFriendRequest deletes the matching pending request if present.
// A missing request is not an error.
func (r *PostgresFriendshipRepository) RejectFriendRequest(recipientID, senderID uint) error {
	err := r.db.Where("sender_id = ? AND recipient_id = ?", senderID, recipientID).
		Delete(&models.FriendRequest{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// HasPendingRequest reports whether sender has an open request to recipient
func (r *PostgresFriendshipRepository) HasPendingRequest(senderID, recipientID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.FriendRequest{}).
		Where("sender_id = ? AND recipient_id = ?", senderID, recipientID).
		Count(&count).Error
	return count > 0, err
}

// GetPendingRequestsFor retrieves all open requests addressed to a user
func (r *PostgresFriendshipRepository) GetPendingRequestsFor(recipientID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	if err := r.db.Where("recipient_id = ?", recipientID).Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// IsFriend reports whether the symmetric edge exists. Friendships are stored
// with UserID1 < UserID2, so one lookup answers for both directions.
func (r *PostgresFriendshipRepository) IsFriend(userID, otherID uint) (bool, error) {
	lo, hi := userID, otherID
	if lo > hi {
		lo, hi = hi, lo
	}
	var count int64
	err := r.db.Model(&models.Friendship{}).
		Where("user_id1 = ? AND user_id2 = ?", lo, hi).
		Count(&count).Error
	return count > 0, err
}

// GetFriendIDs returns the IDs of all direct friends of a user
func (r *PostgresFriendshipRepository) GetFriendIDs(userID uint) ([]uint, error) {
	var edges []models.Friendship
	if err := r.db.Where("user_id1 = ? OR user_id2 = ?", userID, userID).Find(&edges).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		if e.UserID1 == userID {
			ids = append(ids, e.UserID2)
		} else {
			ids = append(ids, e.UserID1)
		}
	}
	return ids, nil
}

// GetFriendOfFriendIDs returns users reachable via exactly one intermediate
// friend, excluding direct friends and the user themselves.
func (r *PostgresFriendshipRepository) GetFriendOfFriendIDs(userID uint) ([]uint, error) {
	friendIDs, err := r.GetFriendIDs(userID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return nil, nil
	}

	direct := make(map[uint]bool, len(friendIDs))
	for _, id := range friendIDs {
		direct[id] = true
	}

	var edges []models.Friendship
	if err := r.db.Where("user_id1 IN ? OR user_id2 IN ?", friendIDs, friendIDs).Find(&edges).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	var fof []uint
	for _, e := range edges {
		for _, id := range []uint{e.UserID1, e.UserID2} {
			if id == userID || direct[id] || seen[id] {
				continue
			}
			seen[id] = true
			fof = append(fof, id)
		}
	}
	return fof, nil
}

// HasMutualFriend reports whether two users share at least one common friend
func (r *PostgresFriendshipRepository) HasMutualFriend(userID, otherID uint) (bool, error) {
	mine, err := r.GetFriendIDs(userID)
	if err != nil {
		return false, err
	}
	theirs, err := r.GetFriendIDs(otherID)
	if err != nil {
		return false, err
	}

	set := make(map[uint]bool, len(mine))
	for _, id := range mine {
		set[id] = true
	}
	for _, id := range theirs {
		if set[id] {
			return true, nil
		}
	}
	return false, nil
}
