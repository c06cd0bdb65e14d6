package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/ajo/internal/auth"
	"github.com/mmynk/ajo/internal/middleware"
	"github.com/mmynk/ajo/internal/rotation"
)

// AjoServiceName is the fully-qualified name of the rotation service.
const AjoServiceName = "ajo.v1.AjoService"

// Procedure paths for AjoService.
const (
	CreateGroupProcedure           = "/" + AjoServiceName + "/CreateGroup"
	JoinGroupProcedure             = "/" + AjoServiceName + "/JoinGroup"
	ContributeProcedure            = "/" + AjoServiceName + "/Contribute"
	ExecutePayoutProcedure         = "/" + AjoServiceName + "/ExecutePayout"
	CancelGroupProcedure           = "/" + AjoServiceName + "/CancelGroup"
	EmergencyWithdrawProcedure     = "/" + AjoServiceName + "/EmergencyWithdraw"
	SetGroupMetadataProcedure      = "/" + AjoServiceName + "/SetGroupMetadata"
	GetGroupProcedure              = "/" + AjoServiceName + "/GetGroup"
	GetGroupMetadataProcedure      = "/" + AjoServiceName + "/GetGroupMetadata"
	GetGroupStatusProcedure        = "/" + AjoServiceName + "/GetGroupStatus"
	GetContributionStatusProcedure = "/" + AjoServiceName + "/GetContributionStatus"
	ListMembersProcedure           = "/" + AjoServiceName + "/ListMembers"
	IsMemberProcedure              = "/" + AjoServiceName + "/IsMember"
	IsCompleteProcedure            = "/" + AjoServiceName + "/IsComplete"
	ListGroupsProcedure            = "/" + AjoServiceName + "/ListGroups"
	EligibleForWithdrawalProcedure = "/" + AjoServiceName + "/EligibleForWithdrawal"
)

// AjoService exposes the rotation engine over Connect.
type AjoService struct {
	engine *rotation.Engine
	logger *slog.Logger
}

// NewAjoService creates an AjoService over engine.
func NewAjoService(engine *rotation.Engine, logger *slog.Logger) *AjoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AjoService{engine: engine, logger: logger}
}

// NewAjoServiceHandler builds the HTTP handler for every AjoService procedure.
// Mutating procedures require a bearer token; reads accept anonymous callers.
func NewAjoServiceHandler(svc *AjoService, jwtManager *auth.JWTManager, opts ...connect.HandlerOption) (string, http.Handler) {
	logging := middleware.LoggingInterceptor(svc.logger)
	write := append([]connect.HandlerOption{
		WithJSON(),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), logging),
	}, opts...)
	read := append([]connect.HandlerOption{
		WithJSON(),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), logging),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateGroupProcedure, connect.NewUnaryHandler(CreateGroupProcedure, svc.CreateGroup, write...))
	mux.Handle(JoinGroupProcedure, connect.NewUnaryHandler(JoinGroupProcedure, svc.JoinGroup, write...))
	mux.Handle(ContributeProcedure, connect.NewUnaryHandler(ContributeProcedure, svc.Contribute, write...))
	mux.Handle(ExecutePayoutProcedure, connect.NewUnaryHandler(ExecutePayoutProcedure, svc.ExecutePayout, write...))
	mux.Handle(CancelGroupProcedure, connect.NewUnaryHandler(CancelGroupProcedure, svc.CancelGroup, write...))
	mux.Handle(EmergencyWithdrawProcedure, connect.NewUnaryHandler(EmergencyWithdrawProcedure, svc.EmergencyWithdraw, write...))
	mux.Handle(SetGroupMetadataProcedure, connect.NewUnaryHandler(SetGroupMetadataProcedure, svc.SetGroupMetadata, write...))

	mux.Handle(GetGroupProcedure, connect.NewUnaryHandler(GetGroupProcedure, svc.GetGroup, read...))
	mux.Handle(GetGroupMetadataProcedure, connect.NewUnaryHandler(GetGroupMetadataProcedure, svc.GetGroupMetadata, read...))
	mux.Handle(GetGroupStatusProcedure, connect.NewUnaryHandler(GetGroupStatusProcedure, svc.GetGroupStatus, read...))
	mux.Handle(GetContributionStatusProcedure, connect.NewUnaryHandler(GetContributionStatusProcedure, svc.GetContributionStatus, read...))
	mux.Handle(ListMembersProcedure, connect.NewUnaryHandler(ListMembersProcedure, svc.ListMembers, read...))
	mux.Handle(IsMemberProcedure, connect.NewUnaryHandler(IsMemberProcedure, svc.IsMember, read...))
	mux.Handle(IsCompleteProcedure, connect.NewUnaryHandler(IsCompleteProcedure, svc.IsComplete, read...))
	mux.Handle(ListGroupsProcedure, connect.NewUnaryHandler(ListGroupsProcedure, svc.ListGroups, read...))
	mux.Handle(EligibleForWithdrawalProcedure, connect.NewUnaryHandler(EligibleForWithdrawalProcedure, svc.EligibleForWithdrawal, read...))

	return "/" + AjoServiceName + "/", mux
}

// CreateGroup founds a group with the caller as creator.
func (s *AjoService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	caller := middleware.GetUserID(ctx)
	s.logger.Info("CreateGroup request received",
		"creator", caller,
		"contribution_amount", req.Msg.ContributionAmount,
		"cycle_duration", req.Msg.CycleDuration,
		"max_members", req.Msg.MaxMembers,
	)

	id, err := s.engine.CreateGroup(ctx, caller, req.Msg.ContributionAmount, req.Msg.CycleDuration, req.Msg.MaxMembers)
	if err != nil {
		s.logger.Warn("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	group, err := s.engine.GetGroup(ctx, id)
	if err != nil {
		s.logger.Error("Failed to fetch created group", "group_id", id, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Group created", "group_id", id)
	return connect.NewResponse(&CreateGroupResponse{Group: group}), nil
}

// JoinGroup appends the caller to the group's rotation.
func (s *AjoService) JoinGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	caller := middleware.GetUserID(ctx)
	s.logger.Info("JoinGroup request received", "group_id", req.Msg.GroupID, "member", caller)

	if err := s.engine.JoinGroup(ctx, caller, req.Msg.GroupID); err != nil {
		s.logger.Warn("JoinGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	group, err := s.engine.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// Contribute records the caller's contribution for the current cycle.
func (s *AjoService) Contribute(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[ContributeResponse], error) {
	caller := middleware.GetUserID(ctx)
	s.logger.Info("Contribute request received", "group_id", req.Msg.GroupID, "member", caller)

	if err := s.engine.Contribute(ctx, caller, req.Msg.GroupID); err != nil {
		s.logger.Warn("Contribute failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	status, err := s.engine.GetGroupStatus(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ContributeResponse{Status: status}), nil
}

// ExecutePayout pays the next recipient. Any authenticated caller may
// trigger it; the engine decides whether the cycle is ready.
func (s *AjoService) ExecutePayout(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[ExecutePayoutResponse], error) {
	s.logger.Info("ExecutePayout request received", "group_id", req.Msg.GroupID, "caller", middleware.GetUserID(ctx))

	payout, err := s.engine.ExecutePayout(ctx, req.Msg.GroupID)
	if err != nil {
		s.logger.Warn("ExecutePayout failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Payout executed",
		"group_id", payout.GroupID,
		"recipient", payout.Recipient,
		"cycle", payout.Cycle,
		"amount", payout.Amount,
		"completed", payout.Completed,
	)
	return connect.NewResponse(&ExecutePayoutResponse{Payout: payout}), nil
}

// CancelGroup ends the group. Creator only.
func (s *AjoService) CancelGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	caller := middleware.GetUserID(ctx)
	s.logger.Info("CancelGroup request received", "group_id", req.Msg.GroupID, "caller", caller)

	if err := s.engine.CancelGroup(ctx, caller, req.Msg.GroupID); err != nil {
		s.logger.Warn("CancelGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	group, err := s.engine.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// EmergencyWithdraw exits the caller from a stalled group.
func (s *AjoService) EmergencyWithdraw(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[EmergencyWithdrawResponse], error) {
	caller := middleware.GetUserID(ctx)
	s.logger.Info("EmergencyWithdraw request received", "group_id", req.Msg.GroupID, "member", caller)

	w, err := s.engine.EmergencyWithdraw(ctx, caller, req.Msg.GroupID)
	if err != nil {
		s.logger.Warn("EmergencyWithdraw failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Emergency withdrawal", "group_id", w.GroupID, "member", w.Member, "refund", w.Refund, "penalty", w.Penalty)
	return connect.NewResponse(&EmergencyWithdrawResponse{Withdrawal: w}), nil
}

// SetGroupMetadata replaces the group's metadata. Creator only.
func (s *AjoService) SetGroupMetadata(ctx context.Context, req *connect.Request[SetGroupMetadataRequest]) (*connect.Response[GroupMetadataResponse], error) {
	caller := middleware.GetUserID(ctx)
	s.logger.Info("SetGroupMetadata request received", "group_id", req.Msg.GroupID, "caller", caller)

	if err := s.engine.SetGroupMetadata(ctx, caller, req.Msg.GroupID, req.Msg.Metadata); err != nil {
		s.logger.Warn("SetGroupMetadata failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	md, err := s.engine.GetGroupMetadata(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupMetadataResponse{Metadata: md}), nil
}

// GetGroup returns the group record.
func (s *AjoService) GetGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	group, err := s.engine.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// GetGroupMetadata returns the group's metadata, or none.
func (s *AjoService) GetGroupMetadata(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupMetadataResponse], error) {
	md, err := s.engine.GetGroupMetadata(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupMetadataResponse{Metadata: md}), nil
}

// GetGroupStatus returns the current cycle snapshot.
func (s *AjoService) GetGroupStatus(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupStatusResponse], error) {
	status, err := s.engine.GetGroupStatus(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupStatusResponse{Status: status}), nil
}

// GetContributionStatus returns each member's paid flag for a cycle.
func (s *AjoService) GetContributionStatus(ctx context.Context, req *connect.Request[ContributionStatusRequest]) (*connect.Response[ContributionStatusResponse], error) {
	contributions, err := s.engine.GetContributionStatus(ctx, req.Msg.GroupID, req.Msg.Cycle)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ContributionStatusResponse{Contributions: contributions}), nil
}

// ListMembers returns members in payout order.
func (s *AjoService) ListMembers(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[ListMembersResponse], error) {
	members, err := s.engine.ListMembers(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListMembersResponse{Members: members}), nil
}

// IsMember checks an identity's membership.
func (s *AjoService) IsMember(ctx context.Context, req *connect.Request[IsMemberRequest]) (*connect.Response[IsMemberResponse], error) {
	ok, err := s.engine.IsMember(ctx, req.Msg.GroupID, req.Msg.Identity)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&IsMemberResponse{IsMember: ok}), nil
}

// IsComplete reports the group's terminal flag.
func (s *AjoService) IsComplete(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[IsCompleteResponse], error) {
	done, err := s.engine.IsComplete(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&IsCompleteResponse{IsComplete: done}), nil
}

// ListGroups returns all groups.
func (s *AjoService) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	groups, err := s.engine.ListGroups(ctx)
	if err != nil {
		s.logger.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListGroupsResponse{Groups: groups}), nil
}

// EligibleForWithdrawal checks whether a member could withdraw now.
// With no member given, the caller is checked.
func (s *AjoService) EligibleForWithdrawal(ctx context.Context, req *connect.Request[EligibleForWithdrawalRequest]) (*connect.Response[EligibleForWithdrawalResponse], error) {
	member := req.Msg.Member
	if member == "" {
		member = middleware.GetUserID(ctx)
	}

	ok, err := s.engine.EligibleForWithdrawal(ctx, req.Msg.GroupID, member)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&EligibleForWithdrawalResponse{Eligible: ok}), nil
}
