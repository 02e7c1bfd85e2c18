package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/rider9600/felicity-event-management-sub001/models"
	"github.com/rider9600/felicity-event-management-sub001/store"
	utils "github.com/rider9600/felicity-event-management-sub001/utils"
)

const inviteCodeLen = 8

// CreateTeam starts a forming team for a published event. The leader is
// auto-added as an accepted member.
func (s *Service) CreateTeam(ctx context.Context, leader *models.User, eventID primitive.ObjectID, name string, size int) (*models.Team, error) {
	if size < models.TeamSizeMin || size > models.TeamSizeMax {
		return nil, errf(KindValidation, "team size must be between %d and %d", models.TeamSizeMin, models.TeamSizeMax)
	}
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, ErrEventNotFound
	}
	if e.Status != models.EventStatusPublished {
		return nil, ErrRegistrationClosed
	}

	now := time.Now()
	team := &models.Team{
		EventID:  eventID,
		LeaderID: leader.ID,
		TeamName: name,
		TeamSize: size,
		Members: []models.TeamMember{
			{UserID: leader.ID, Status: models.MemberAccepted, JoinedAt: &now},
		},
		Status:    models.TeamStatusForming,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Invite codes are random; retry the rare collision against the unique
	// index instead of checking first.
	for attempt := 0; attempt < 5; attempt++ {
		team.InviteCode = utils.NewInviteCode(inviteCodeLen)
		err = s.store.CreateTeam(ctx, team)
		if !errors.Is(err, store.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

// JoinByCode adds the caller to a team as an invited member.
func (s *Service) JoinByCode(ctx context.Context, user *models.User, eventID primitive.ObjectID, code string) (*models.Team, error) {
	team, err := s.store.GetTeamByInviteCode(ctx, eventID, code)
	if err != nil {
		return nil, errf(KindNotFound, "invalid invite code for this event")
	}
	if team.RegistrationComplete {
		return nil, ErrTeamLocked
	}
	if team.Member(user.ID) != nil {
		return nil, ErrAlreadyMember
	}
	if team.AcceptedCount() >= team.TeamSize {
		return nil, ErrTeamFull
	}
	m := models.TeamMember{UserID: user.ID, Status: models.MemberInvited}
	if err := s.store.AddTeamMember(ctx, team.ID, m); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrTeamFull
		}
		return nil, err
	}
	return s.store.GetTeam(ctx, team.ID)
}

// RespondToInvite accepts or declines a pending invite. The final acceptance
// that fills the team triggers the one-time completion effect.
func (s *Service) RespondToInvite(ctx context.Context, user *models.User, teamID primitive.ObjectID, accept bool) (*models.Team, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, ErrTeamNotFound
	}
	m := team.Member(user.ID)
	if m == nil || m.Status != models.MemberInvited {
		return nil, ErrNoPendingInvite
	}

	if !accept {
		// Declined members stay in the history; declining is terminal for
		// that member.
		if err := s.store.SetMemberStatus(ctx, teamID, user.ID, models.MemberInvited, models.MemberDeclined, nil); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return nil, ErrNoPendingInvite
			}
			return nil, err
		}
		return s.store.GetTeam(ctx, teamID)
	}

	now := time.Now()
	if err := s.store.SetMemberStatus(ctx, teamID, user.ID, models.MemberInvited, models.MemberAccepted, &now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrNoPendingInvite
		}
		return nil, err
	}

	// One caller wins the completion flip even if the final acceptance is
	// retried concurrently.
	won, err := s.store.CompleteTeam(ctx, teamID, now)
	if err != nil {
		return nil, err
	}
	if won {
		if err := s.finalizeCompletion(ctx, teamID); err != nil {
			return nil, err
		}
	}
	return s.store.GetTeam(ctx, teamID)
}

// teamTicketID is deterministic per (team, member) so retries and
// reconciliation cannot double-mint.
func teamTicketID(teamID, userID primitive.ObjectID) string {
	return fmt.Sprintf("TEAM-%s-%s", teamID.Hex(), userID.Hex())
}

// finalizeCompletion mints one ticket per accepted member and applies the
// event counter increment exactly once. Idempotent: duplicate ticket ids are
// skipped, the counter is guarded by the team's count_applied flag.
func (s *Service) finalizeCompletion(ctx context.Context, teamID primitive.ObjectID) error {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return ErrTeamNotFound
	}

	now := time.Now()
	var failed int
	for _, m := range team.Members {
		if m.Status != models.MemberAccepted {
			continue
		}
		ticketID := teamTicketID(team.ID, m.UserID)
		t := &models.Ticket{
			TicketID:      ticketID,
			EventID:       team.EventID,
			UserID:        m.UserID,
			TeamID:        &team.ID,
			Kind:          models.TicketKindTeam,
			Status:        models.TicketStatusActive,
			PaymentStatus: models.PaymentNotRequired,
			QRCode:        s.issueQR(ticketID, team.EventID, m.UserID, ""),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err := s.store.CreateTicket(ctx, t)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrDuplicate):
			// Already minted by an earlier attempt.
		default:
			logger.Errorf("mint team ticket %s: %v", ticketID, err)
			failed++
		}
	}
	if failed > 0 {
		return ErrTicketGeneration
	}

	counted, err := s.store.MarkTeamCounted(ctx, teamID)
	if err != nil {
		return err
	}
	if counted {
		if err := s.store.AddRegistrations(ctx, team.EventID, team.AcceptedCount()); err != nil {
			return err
		}
	}

	for _, m := range team.Members {
		if m.Status != models.MemberAccepted {
			continue
		}
		s.emit(DomainEvent{
			Type:     EventTeamCompleted,
			EventID:  team.EventID,
			UserID:   m.UserID,
			TicketID: teamTicketID(team.ID, m.UserID),
			TeamID:   &team.ID,
			At:       now,
		})
	}
	return nil
}

// ReconcileTeamTickets re-runs the completion effect for a team flagged
// complete whose ticket count trails its accepted members (partial minting
// failure). Safe to call repeatedly.
func (s *Service) ReconcileTeamTickets(ctx context.Context, teamID primitive.ObjectID) error {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return ErrTeamNotFound
	}
	if !team.RegistrationComplete {
		return errf(KindStateConflict, "team registration is not complete")
	}
	n, err := s.store.CountTeamTickets(ctx, teamID)
	if err != nil {
		return err
	}
	if n >= team.AcceptedCount() && team.CountApplied {
		return nil
	}
	return s.finalizeCompletion(ctx, teamID)
}

// DeleteTeam removes a forming team. Leader only, and never after completion.
func (s *Service) DeleteTeam(ctx context.Context, caller *models.User, teamID primitive.ObjectID) error {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return ErrTeamNotFound
	}
	if team.LeaderID != caller.ID && caller.Role != models.RoleAdmin {
		return ErrNotOwner
	}
	if err := s.store.DeleteTeam(ctx, teamID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrTeamLocked
		}
		return err
	}
	return nil
}
