package service

import (
	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/rotation"
)

// Request and response messages for AjoService and AuthService. The caller
// identity always comes from the bearer token, never from a message field.

type CreateGroupRequest struct {
	ContributionAmount int64  `json:"contribution_amount"`
	CycleDuration      uint64 `json:"cycle_duration"`
	MaxMembers         uint32 `json:"max_members"`
}

type CreateGroupResponse struct {
	Group *models.Group `json:"group"`
}

type GroupRequest struct {
	GroupID uint64 `json:"group_id"`
}

type GroupResponse struct {
	Group *models.Group `json:"group"`
}

type ContributeResponse struct {
	Status *models.GroupStatus `json:"status"`
}

type ExecutePayoutResponse struct {
	Payout *rotation.Payout `json:"payout"`
}

type EmergencyWithdrawResponse struct {
	Withdrawal *models.Withdrawal `json:"withdrawal"`
}

type EligibleForWithdrawalRequest struct {
	GroupID uint64 `json:"group_id"`
	Member  string `json:"member"`
}

type EligibleForWithdrawalResponse struct {
	Eligible bool `json:"eligible"`
}

type SetGroupMetadataRequest struct {
	GroupID  uint64               `json:"group_id"`
	Metadata models.GroupMetadata `json:"metadata"`
}

type GroupMetadataResponse struct {
	// Metadata is nil when the group has none.
	Metadata *models.GroupMetadata `json:"metadata"`
}

type GroupStatusResponse struct {
	Status *models.GroupStatus `json:"status"`
}

type ContributionStatusRequest struct {
	GroupID uint64 `json:"group_id"`
	Cycle   uint32 `json:"cycle"`
}

type ContributionStatusResponse struct {
	Contributions []models.MemberContribution `json:"contributions"`
}

type ListMembersResponse struct {
	Members []string `json:"members"`
}

type IsMemberRequest struct {
	GroupID  uint64 `json:"group_id"`
	Identity string `json:"identity"`
}

type IsMemberResponse struct {
	IsMember bool `json:"is_member"`
}

type IsCompleteResponse struct {
	IsComplete bool `json:"is_complete"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*models.Group `json:"groups"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

type AuthResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type GetCurrentUserRequest struct{}

type UserResponse struct {
	User *User `json:"user"`
}
