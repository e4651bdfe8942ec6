// Package policy consolidates the per-route permission checks into one
// component. Every decision carries a reason code so handlers and logs can
// tell why access was granted or denied.
package policy

import "github.com/SL1dee36/Connect/internal/models"

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Reason codes returned by policy checks.
const (
	ReasonSelf            = "self"
	ReasonRole            = "moderator_role"
	ReasonFriends         = "friends"
	ReasonRecipientOpen   = "recipient_accepts_all"
	ReasonMutualFriend    = "mutual_friend"
	ReasonExistingThread  = "existing_thread"
	ReasonPostAuthor      = "post_author"
	ReasonNotPermitted    = "not_permitted"
	ReasonNotProfileOwner = "not_profile_owner"
	ReasonNotPostAuthor   = "not_post_author"
)

// FriendshipStore is the slice of the friendship repository the policy needs.
type FriendshipStore interface {
	IsFriend(userID, otherID uint) (bool, error)
	HasMutualFriend(userID, otherID uint) (bool, error)
}

// MessageStore is the slice of the message repository the policy needs.
type MessageStore interface {
	HasConversation(userID, otherID uint) (bool, error)
}

// Policy answers (actor, resource, action) questions for every handler.
type Policy struct {
	friendships FriendshipStore
	messages    MessageStore
}

// New creates a Policy backed by the given stores
func New(friendships FriendshipStore, messages MessageStore) *Policy {
	return &Policy{friendships: friendships, messages: messages}
}

// CanMessage decides whether sender may write to recipient. The clauses are
// evaluated in order: friendship, the recipient's open preference, the
// friends-of-friends preference with at least one mutual friend, and finally
// an existing conversation in either direction (prior threads stay writable
// regardless of preference changes).
func (p *Policy) CanMessage(sender, recipient *models.User) (Decision, error) {
	friends, err := p.friendships.IsFriend(sender.ID, recipient.ID)
	if err != nil {
		return Decision{}, err
	}
	if friends {
		return Decision{Allowed: true, Reason: ReasonFriends}, nil
	}

	if recipient.MessageSettings == models.MessageSettingsAll {
		return Decision{Allowed: true, Reason: ReasonRecipientOpen}, nil
	}

	if recipient.MessageSettings == models.MessageSettingsFriendsOfFriends {
		mutual, err := p.friendships.HasMutualFriend(sender.ID, recipient.ID)
		if err != nil {
			return Decision{}, err
		}
		if mutual {
			return Decision{Allowed: true, Reason: ReasonMutualFriend}, nil
		}
	}

	existing, err := p.messages.HasConversation(sender.ID, recipient.ID)
	if err != nil {
		return Decision{}, err
	}
	if existing {
		return Decision{Allowed: true, Reason: ReasonExistingThread}, nil
	}

	return Decision{Allowed: false, Reason: ReasonNotPermitted}, nil
}

// CanEditProfile decides whether actor may change target's avatar and
// settings: the owner themselves, or a moderator/admin.
func (p *Policy) CanEditProfile(actor, target *models.User) Decision {
	if actor.ID == target.ID {
		return Decision{Allowed: true, Reason: ReasonSelf}
	}
	if actor.IsModerator() {
		return Decision{Allowed: true, Reason: ReasonRole}
	}
	return Decision{Allowed: false, Reason: ReasonNotPermitted}
}

// CanCreatePost decides whether actor may post on the named profile. Only
// the profile owner may; moderators get no exception here.
func (p *Policy) CanCreatePost(actor *models.User, profileUsername string) Decision {
	if actor.Username == profileUsername {
		return Decision{Allowed: true, Reason: ReasonSelf}
	}
	return Decision{Allowed: false, Reason: ReasonNotProfileOwner}
}

// CanDeletePost decides whether actor may remove a post
func (p *Policy) CanDeletePost(actor *models.User, post *models.Post) Decision {
	if actor.ID == post.UserID {
		return Decision{Allowed: true, Reason: ReasonPostAuthor}
	}
	return Decision{Allowed: false, Reason: ReasonNotPostAuthor}
}
