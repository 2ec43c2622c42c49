package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo      Repository
	fees      Fees
	validate  *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
	newTeamID func() string
}

func NewService(repo Repository, fees Fees, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		fees:      fees,
		validate:  newValidator(),
		logger:    logger.With().Str("component", "registrations").Logger(),
		now:       time.Now,
		newTeamID: func() string { return uuid.NewString() },
	}
}

func (s *Service) Fees() Fees {
	return s.fees
}

// RegisterResult reports the registration id and whether this call created it.
type RegisterResult struct {
	UserID  int64
	Created bool
}

// Register creates the caller's NITRUTSAV registration. Repeating the call
// returns the existing registration.
func (s *Service) Register(ctx context.Context, uid string, in NitrutsavInput) (RegisterResult, error) {
	user, err := s.validateNitrutsav(in)
	if err != nil {
		return RegisterResult{}, err
	}
	user.FirebaseUID = uid

	var result RegisterResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.LockIdentity(ctx, uid); err != nil {
			return err
		}
		if _, err := tx.GetMunByUID(ctx, uid); err == nil {
			return ErrCrossRegistration
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("check mun registration: %w", err)
		}

		saved, created, err := tx.CreateUser(ctx, user)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		result = RegisterResult{UserID: saved.ID, Created: created}
		return nil
	})
	if err != nil {
		return RegisterResult{}, err
	}

	if result.Created {
		s.logger.Info().Int64("user_id", result.UserID).Msg("nitrutsav registration created")
	}
	return result, nil
}

func (s *Service) GetByUID(ctx context.Context, uid string) (*User, error) {
	return s.repo.GetUserByUID(ctx, uid)
}

func (s *Service) GetMunByUID(ctx context.Context, uid string) (*MunRegistration, error) {
	return s.repo.GetMunByUID(ctx, uid)
}

// CheckCrossRegistration reports the caller's registration across both
// events. A MUN delegate also counts as registered for NITRUTSAV.
func (s *Service) CheckCrossRegistration(ctx context.Context, uid string) (CrossRegistration, error) {
	mun, err := s.repo.GetMunByUID(ctx, uid)
	switch {
	case err == nil:
		kind := EventMun
		return CrossRegistration{
			IsMunRegistered:       true,
			IsNitrutsavRegistered: true,
			RegistrationType:      &kind,
			UserID:                &mun.ID,
			Name:                  &mun.Name,
			Email:                 &mun.Email,
			IsPaymentVerified:     mun.IsVerified,
		}, nil
	case !errors.Is(err, ErrNotFound):
		return CrossRegistration{}, fmt.Errorf("get mun registration: %w", err)
	}

	user, err := s.repo.GetUserByUID(ctx, uid)
	switch {
	case err == nil:
		kind := EventNitrutsav
		return CrossRegistration{
			IsNitrutsavRegistered: true,
			RegistrationType:      &kind,
			UserID:                &user.ID,
			Name:                  &user.Name,
			Email:                 &user.Email,
			IsPaymentVerified:     user.IsVerified,
		}, nil
	case !errors.Is(err, ErrNotFound):
		return CrossRegistration{}, fmt.Errorf("get user: %w", err)
	}

	return CrossRegistration{}, nil
}

// MunRegisterResult is returned by both MUN registration flows.
type MunRegisterResult struct {
	UserID    int64
	TeamID    string
	MemberIDs []int64
	Created   bool
}

// RegisterMun creates an individual MUN registration for the caller.
func (s *Service) RegisterMun(ctx context.Context, uid string, in MunInput) (MunRegisterResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return MunRegisterResult{}, toValidationError(err)
	}
	committee := Committee(in.CommitteeChoice)
	if committee == "" {
		return MunRegisterResult{}, fieldError("committeeChoice", "is required")
	}
	if committee.TeamSize() > 1 {
		return MunRegisterResult{}, fieldError("committeeChoice", "requires a team registration")
	}

	reg, err := s.munFromInput(in, "")
	if err != nil {
		return MunRegisterResult{}, err
	}
	reg.FirebaseUID = uid

	var result MunRegisterResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.LockIdentity(ctx, uid); err != nil {
			return err
		}
		if err := ensureNoNitrutsav(ctx, tx, uid); err != nil {
			return err
		}

		saved, created, err := tx.CreateMun(ctx, reg)
		if err != nil {
			return fmt.Errorf("create mun registration: %w", err)
		}
		result = MunRegisterResult{UserID: saved.ID, TeamID: saved.TeamID, MemberIDs: []int64{saved.ID}, Created: created}
		return nil
	})
	if err != nil {
		return MunRegisterResult{}, err
	}

	if result.Created {
		s.logger.Info().Int64("mun_id", result.UserID).Str("committee", string(committee)).Msg("mun registration created")
	}
	return result, nil
}

// RegisterMunTeam registers the caller as leader of a team committee along
// with the teammates they name. Teammate rows stay unlinked until each
// teammate signs in.
func (s *Service) RegisterMunTeam(ctx context.Context, uid string, in MunTeamInput) (MunRegisterResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return MunRegisterResult{}, toValidationError(err)
	}

	committee := Committee(in.Leader.CommitteeChoice)
	if committee == "" {
		return MunRegisterResult{}, fieldError("leader.committeeChoice", "is required")
	}
	size := committee.TeamSize()
	if size == 1 {
		return MunRegisterResult{}, fieldError("leader.committeeChoice", "does not take team registrations")
	}
	if len(in.Teammates) != size-1 {
		return MunRegisterResult{}, fieldError("teammates", fmt.Sprintf("must list exactly %d teammates", size-1))
	}

	leader, err := s.munFromInput(in.Leader, "leader.")
	if err != nil {
		return MunRegisterResult{}, err
	}
	leader.FirebaseUID = uid
	leader.IsTeamLeader = true

	members := []MunRegistration{leader}
	seen := map[string]bool{leader.Email: true}
	for i, mate := range in.Teammates {
		prefix := fmt.Sprintf("teammates[%d].", i)
		member, err := s.munFromInput(mate, prefix)
		if err != nil {
			return MunRegisterResult{}, err
		}
		if seen[member.Email] {
			return MunRegisterResult{}, fieldError(prefix+"email", "duplicates another team member")
		}
		seen[member.Email] = true
		member.Committee = committee
		members = append(members, member)
	}

	var result MunRegisterResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.LockIdentity(ctx, uid); err != nil {
			return err
		}
		if err := ensureNoNitrutsav(ctx, tx, uid); err != nil {
			return err
		}

		existing, err := tx.GetMunByUID(ctx, uid)
		if err == nil {
			result = MunRegisterResult{UserID: existing.ID, TeamID: existing.TeamID, Created: false}
			if existing.TeamID != "" {
				team, err := tx.ListTeamMembers(ctx, existing.TeamID)
				if err != nil {
					return fmt.Errorf("list team: %w", err)
				}
				for _, m := range team {
					result.MemberIDs = append(result.MemberIDs, m.ID)
				}
			}
			return nil
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("get mun registration: %w", err)
		}

		emails := make([]string, 0, len(members))
		for _, m := range members {
			emails = append(emails, m.Email)
		}
		taken, err := tx.MunEmailsTaken(ctx, emails)
		if err != nil {
			return fmt.Errorf("check team emails: %w", err)
		}
		if len(taken) > 0 {
			verr := &ValidationError{Fields: map[string]string{}}
			for _, email := range taken {
				verr.Fields[memberField(members, email)] = "is already registered for MUN"
			}
			return verr
		}

		teamID := s.newTeamID()
		for i := range members {
			members[i].TeamID = teamID
		}
		saved, err := tx.CreateMunTeam(ctx, members)
		if err != nil {
			return fmt.Errorf("create team: %w", err)
		}

		result = MunRegisterResult{UserID: saved[0].ID, TeamID: teamID, Created: true}
		for _, m := range saved {
			result.MemberIDs = append(result.MemberIDs, m.ID)
		}
		return nil
	})
	if err != nil {
		return MunRegisterResult{}, err
	}

	if result.Created {
		s.logger.Info().Str("team_id", result.TeamID).Int("members", len(result.MemberIDs)).Msg("mun team registered")
	}
	return result, nil
}

func memberField(members []MunRegistration, email string) string {
	for i, m := range members {
		if strings.EqualFold(m.Email, email) {
			if i == 0 {
				return "leader.email"
			}
			return fmt.Sprintf("teammates[%d].email", i-1)
		}
	}
	return "email"
}

func ensureNoNitrutsav(ctx context.Context, tx Repository, uid string) error {
	if _, err := tx.GetUserByUID(ctx, uid); err == nil {
		return ErrCrossRegistration
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check nitrutsav registration: %w", err)
	}
	return nil
}

// LinkTeammate attaches the caller to the teammate row a leader created
// for their email.
func (s *Service) LinkTeammate(ctx context.Context, uid, email string) (*MunRegistration, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if uid == "" || email == "" {
		return nil, ErrTeammateNotFound
	}

	var linked *MunRegistration
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.LockIdentity(ctx, uid); err != nil {
			return err
		}
		if existing, err := tx.GetMunByUID(ctx, uid); err == nil {
			linked = existing
			return nil
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("get mun registration: %w", err)
		}
		if err := ensureNoNitrutsav(ctx, tx, uid); err != nil {
			return err
		}

		reg, err := tx.LinkTeammate(ctx, uid, email)
		if err != nil {
			return err
		}
		linked = reg
		s.logger.Info().Int64("mun_id", reg.ID).Str("team_id", reg.TeamID).Msg("teammate linked")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return linked, nil
}

// CheckMunRegistration reports the caller's MUN registration, linking a
// pending teammate row on the way when the email matches one.
func (s *Service) CheckMunRegistration(ctx context.Context, uid, email string) (MunStatus, error) {
	reg, err := s.repo.GetMunByUID(ctx, uid)
	if errors.Is(err, ErrNotFound) && email != "" {
		reg, err = s.LinkTeammate(ctx, uid, email)
		if errors.Is(err, ErrTeammateNotFound) || errors.Is(err, ErrCrossRegistration) {
			return MunStatus{}, nil
		}
	}
	if errors.Is(err, ErrNotFound) {
		return MunStatus{}, nil
	}
	if err != nil {
		return MunStatus{}, fmt.Errorf("check mun registration: %w", err)
	}

	status := MunStatus{
		IsRegistered:      true,
		UserID:            &reg.ID,
		Name:              &reg.Name,
		Email:             &reg.Email,
		IsPaymentVerified: reg.IsVerified,
		IsTeamLeader:      reg.IsTeamLeader,
	}
	if reg.TeamID != "" {
		status.TeamID = &reg.TeamID
	}
	return status, nil
}

// GetTeam returns every member of the caller's team. Individual delegates
// get a team of one.
func (s *Service) GetTeam(ctx context.Context, uid string) (Team, error) {
	reg, err := s.repo.GetMunByUID(ctx, uid)
	if err != nil {
		return Team{}, err
	}
	if reg.TeamID == "" {
		return Team{Key: reg.TeamKey(), Committee: reg.Committee, IsVerified: reg.IsVerified, Members: []MunRegistration{*reg}}, nil
	}
	return s.GetTeamMembers(ctx, reg.TeamID)
}

func (s *Service) GetTeamMembers(ctx context.Context, teamID string) (Team, error) {
	members, err := s.repo.ListTeamMembers(ctx, teamID)
	if err != nil {
		return Team{}, fmt.Errorf("list team members: %w", err)
	}
	if len(members) == 0 {
		return Team{}, ErrTeamNotFound
	}
	return GroupTeams(members)[0], nil
}

// GroupTeams groups delegates by team key, keeping first-seen order. Leaders
// sort first within a team.
func GroupTeams(rows []MunRegistration) []Team {
	index := make(map[string]int)
	var teams []Team
	for _, row := range rows {
		key := row.TeamKey()
		i, ok := index[key]
		if !ok {
			i = len(teams)
			index[key] = i
			teams = append(teams, Team{Key: key, Committee: row.Committee, IsVerified: true})
		}
		team := &teams[i]
		if row.IsTeamLeader {
			team.Members = append([]MunRegistration{row}, team.Members...)
		} else {
			team.Members = append(team.Members, row)
		}
		team.IsVerified = team.IsVerified && row.IsVerified
	}
	return teams
}
