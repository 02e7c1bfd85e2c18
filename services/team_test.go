package services

import (
	"errors"
	"sync"
	"testing"

	models "github.com/rider9600/felicity-event-management-sub001/models"
)

func TestTeamFormationFlow(t *testing.T) {
	svc, st, rec := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)

	leader := participant(models.ParticipantIIIT)
	mate := participant(models.ParticipantNonIIIT)

	team, err := svc.CreateTeam(t.Context(), leader, e.ID, "circuit breakers", 2)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if team.InviteCode == "" {
		t.Fatal("expected an invite code")
	}
	if team.AcceptedCount() != 1 {
		t.Fatalf("accepted = %d, want the leader pre-accepted", team.AcceptedCount())
	}

	team, err = svc.JoinByCode(t.Context(), mate, e.ID, team.InviteCode)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	m := team.Member(mate.ID)
	if m == nil || m.Status != models.MemberInvited {
		t.Fatalf("member = %+v, want invited", m)
	}

	team, err = svc.RespondToInvite(t.Context(), mate, team.ID, true)
	if err != nil {
		t.Fatalf("accept invite: %v", err)
	}
	if !team.RegistrationComplete || team.Status != models.TeamStatusComplete {
		t.Fatalf("team = %+v, want complete", team)
	}

	// One ticket per accepted member, counter bumped by team size.
	n, _ := st.CountTeamTickets(t.Context(), team.ID)
	if n != 2 {
		t.Errorf("team tickets = %d, want 2", n)
	}
	got, _ := st.GetEvent(t.Context(), e.ID)
	if got.RegistrationCount != 2 {
		t.Errorf("registration count = %d, want 2", got.RegistrationCount)
	}
	if n := len(rec.byType(EventTeamCompleted)); n != 2 {
		t.Errorf("completion events = %d, want one per member", n)
	}
}

func TestTeamSizeBounds(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	leader := participant(models.ParticipantIIIT)

	for _, size := range []int{1, 11} {
		if _, err := svc.CreateTeam(t.Context(), leader, e.ID, "bad", size); KindOf(err) != KindValidation {
			t.Errorf("size %d: err = %v, want validation", size, err)
		}
	}
}

func TestJoinErrors(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	leader := participant(models.ParticipantIIIT)

	team, err := svc.CreateTeam(t.Context(), leader, e.ID, "pair", 2)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	t.Run("bad code", func(t *testing.T) {
		_, err := svc.JoinByCode(t.Context(), participant(models.ParticipantIIIT), e.ID, "NOPE1234")
		if KindOf(err) != KindNotFound {
			t.Fatalf("err = %v, want not found", err)
		}
	})

	t.Run("leader rejoining", func(t *testing.T) {
		_, err := svc.JoinByCode(t.Context(), leader, e.ID, team.InviteCode)
		if !errors.Is(err, ErrAlreadyMember) {
			t.Fatalf("err = %v, want ErrAlreadyMember", err)
		}
	})

	t.Run("locked after completion", func(t *testing.T) {
		mate := participant(models.ParticipantNonIIIT)
		if _, err := svc.JoinByCode(t.Context(), mate, e.ID, team.InviteCode); err != nil {
			t.Fatalf("join: %v", err)
		}
		if _, err := svc.RespondToInvite(t.Context(), mate, team.ID, true); err != nil {
			t.Fatalf("accept: %v", err)
		}
		_, err := svc.JoinByCode(t.Context(), participant(models.ParticipantIIIT), e.ID, team.InviteCode)
		if !errors.Is(err, ErrTeamLocked) {
			t.Fatalf("err = %v, want ErrTeamLocked", err)
		}
	})
}

func TestDeclineIsTerminalButMemberRemains(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	leader := participant(models.ParticipantIIIT)
	mate := participant(models.ParticipantNonIIIT)

	team, _ := svc.CreateTeam(t.Context(), leader, e.ID, "duo", 2)
	if _, err := svc.JoinByCode(t.Context(), mate, e.ID, team.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}

	team, err := svc.RespondToInvite(t.Context(), mate, team.ID, false)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	m := team.Member(mate.ID)
	if m == nil || m.Status != models.MemberDeclined {
		t.Fatalf("member = %+v, want declined kept in roster", m)
	}

	// Declining again is a state conflict, not a fresh invite.
	if _, err := svc.RespondToInvite(t.Context(), mate, team.ID, true); !errors.Is(err, ErrNoPendingInvite) {
		t.Fatalf("err = %v, want ErrNoPendingInvite", err)
	}
}

func TestTeamCompletionExactlyOnce(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	leader := participant(models.ParticipantIIIT)

	const size = 4
	team, err := svc.CreateTeam(t.Context(), leader, e.ID, "quad", size)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	mates := make([]*models.User, size-1)
	for i := range mates {
		mates[i] = participant(models.ParticipantIIIT)
		if _, err := svc.JoinByCode(t.Context(), mates[i], e.ID, team.InviteCode); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}

	// All pending members accept concurrently; the final acceptance completes
	// the team exactly once no matter the interleaving.
	var wg sync.WaitGroup
	for _, m := range mates {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			if _, err := svc.RespondToInvite(t.Context(), u, team.ID, true); err != nil {
				t.Errorf("accept: %v", err)
			}
		}(m)
	}
	wg.Wait()

	got, _ := st.GetTeam(t.Context(), team.ID)
	if !got.RegistrationComplete {
		t.Fatal("team not complete")
	}
	n, _ := st.CountTeamTickets(t.Context(), team.ID)
	if n != size {
		t.Errorf("team tickets = %d, want %d", n, size)
	}
	ev, _ := st.GetEvent(t.Context(), e.ID)
	if ev.RegistrationCount != size {
		t.Errorf("registration count = %d, want %d applied exactly once", ev.RegistrationCount, size)
	}
}

func TestDuplicateFinalAcceptMintsOnce(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	leader := participant(models.ParticipantIIIT)
	mate := participant(models.ParticipantNonIIIT)

	team, err := svc.CreateTeam(t.Context(), leader, e.ID, "duo", 2)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, err := svc.JoinByCode(t.Context(), mate, e.ID, team.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}

	// The filling acceptance is retried concurrently; at most one retry wins
	// the member flip and neither path double-mints.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RespondToInvite(t.Context(), mate, team.ID, true)
			if err != nil && !errors.Is(err, ErrNoPendingInvite) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	n, _ := st.CountTeamTickets(t.Context(), team.ID)
	if n != 2 {
		t.Errorf("team tickets = %d, want 2 not 4", n)
	}
	ev, _ := st.GetEvent(t.Context(), e.ID)
	if ev.RegistrationCount != 2 {
		t.Errorf("registration count = %d, want incremented exactly once by team size", ev.RegistrationCount)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	leader := participant(models.ParticipantIIIT)
	mate := participant(models.ParticipantNonIIIT)

	team, _ := svc.CreateTeam(t.Context(), leader, e.ID, "duo", 2)
	if _, err := svc.JoinByCode(t.Context(), mate, e.ID, team.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := svc.RespondToInvite(t.Context(), mate, team.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.ReconcileTeamTickets(t.Context(), team.ID); err != nil {
			t.Fatalf("reconcile %d: %v", i, err)
		}
	}

	n, _ := st.CountTeamTickets(t.Context(), team.ID)
	if n != 2 {
		t.Errorf("team tickets = %d, want 2 after repeated reconcile", n)
	}
	ev, _ := st.GetEvent(t.Context(), e.ID)
	if ev.RegistrationCount != 2 {
		t.Errorf("registration count = %d, want 2", ev.RegistrationCount)
	}
}

func TestDeleteTeam(t *testing.T) {
	svc, st, _ := newTestService(t)
	org := organizerUser()
	e := seedNormalEvent(t, st, org, 0)
	leader := participant(models.ParticipantIIIT)
	mate := participant(models.ParticipantNonIIIT)

	t.Run("leader deletes a forming team", func(t *testing.T) {
		team, _ := svc.CreateTeam(t.Context(), leader, e.ID, "forming", 3)
		if err := svc.DeleteTeam(t.Context(), leader, team.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
	})

	t.Run("non-leader cannot delete", func(t *testing.T) {
		team, _ := svc.CreateTeam(t.Context(), leader, e.ID, "guarded", 3)
		if err := svc.DeleteTeam(t.Context(), mate, team.ID); !errors.Is(err, ErrNotOwner) {
			t.Fatalf("err = %v, want ErrNotOwner", err)
		}
	})

	t.Run("completed team is locked", func(t *testing.T) {
		team, _ := svc.CreateTeam(t.Context(), leader, e.ID, "locked", 2)
		if _, err := svc.JoinByCode(t.Context(), mate, e.ID, team.InviteCode); err != nil {
			t.Fatalf("join: %v", err)
		}
		if _, err := svc.RespondToInvite(t.Context(), mate, team.ID, true); err != nil {
			t.Fatalf("accept: %v", err)
		}
		if err := svc.DeleteTeam(t.Context(), leader, team.ID); !errors.Is(err, ErrTeamLocked) {
			t.Fatalf("err = %v, want ErrTeamLocked", err)
		}
	})
}
