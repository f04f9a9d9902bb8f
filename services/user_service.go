package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/models"
	"milorg-admin/repositories"
)

// The UserService interface defines the user administration operations
type UserService interface {
	CreateUser(ctx context.Context, input *CreateUserInput) (*UserResponse, error)
	GetUserByID(ctx context.Context, userID uint) (*UserResponse, error)
	UpdateUser(ctx context.Context, userID uint, input *UpdateUserInput) (*UserResponse, error)
	AssignRole(ctx context.Context, userID uint, roleID *uint) (*UserResponse, error)
	ListUsers(ctx context.Context, page int, pageSize int) (*PaginatedUsersResponse, error)
	DeleteUser(ctx context.Context, userID uint, requestingUserID uint) error
}

// --- Structs for Input/Output ---
type CreateUserInput struct {
	Name                   string `json:"name" validate:"required,max=255"`
	ServiceName            string `json:"serviceName" validate:"required,max=255"`
	Email                  string `json:"email" validate:"required,email"`
	NationalID             string `json:"nationalId" validate:"required,numeric,max=32"`
	Password               string `json:"password" validate:"required,min=6"`
	RankID                 uint   `json:"rankId" validate:"required"`
	RoleID                 *uint  `json:"roleId"`
	MilitaryOrganizationID *uint  `json:"militaryOrganizationId"`
	SectionID              *uint  `json:"sectionId"`
}

// UpdateUserInput uses pointers to tell "not provided" from empty.
type UpdateUserInput struct {
	Name                   *string `json:"name" validate:"omitempty,max=255"`
	ServiceName            *string `json:"serviceName" validate:"omitempty,max=255"`
	Email                  *string `json:"email" validate:"omitempty,email"`
	NationalID             *string `json:"nationalId" validate:"omitempty,numeric,max=32"`
	Password               *string `json:"password" validate:"omitempty,min=6"`
	RankID                 *uint   `json:"rankId"`
	MilitaryOrganizationID *uint   `json:"militaryOrganizationId"`
	SectionID              *uint   `json:"sectionId"`
}

type AssignRoleInput struct {
	RoleID *uint `json:"roleId"`
}

type UserResponse struct {
	ID                     uint          `json:"id"`
	Name                   string        `json:"name"`
	ServiceName            string        `json:"serviceName"`
	Email                  string        `json:"email"`
	NationalID             string        `json:"nationalId"`
	Rank                   *auth.RankRef `json:"rank,omitempty"`
	Role                   *auth.OrgRef  `json:"role,omitempty"`
	MilitaryOrganizationID *uint         `json:"militaryOrganizationId,omitempty"`
	SectionID              *uint         `json:"sectionId,omitempty"`
	CreatedAt              time.Time     `json:"createdAt"`
	UpdatedAt              time.Time     `json:"updatedAt"`
}

type PaginatedUsersResponse struct {
	Users    []UserResponse `json:"users"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

type userService struct {
	repo     repositories.UserRepository
	ranks    repositories.RankRepository
	roles    repositories.RoleRepository
	orgs     repositories.OrganizationRepository
	sections repositories.SectionRepository
	logger   *zap.Logger
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new UserService instance
func NewUserService(
	repo repositories.UserRepository,
	ranks repositories.RankRepository,
	roles repositories.RoleRepository,
	orgs repositories.OrganizationRepository,
	sections repositories.SectionRepository,
	logger *zap.Logger,
) UserService {
	return &userService{repo: repo, ranks: ranks, roles: roles, orgs: orgs, sections: sections, logger: logger}
}

func (s *userService) CreateUser(ctx context.Context, input *CreateUserInput) (*UserResponse, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, input.Email, 0); err != nil {
		return nil, err
	}
	if err := s.checkNationalIDFree(ctx, input.NationalID, 0); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, &input.RankID, input.RoleID, input.MilitaryOrganizationID, input.SectionID); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.System("could not hash password", err)
	}

	user := models.User{
		Name:                   strings.TrimSpace(input.Name),
		ServiceName:            strings.TrimSpace(input.ServiceName),
		Email:                  input.Email,
		NationalID:             input.NationalID,
		Password:               string(hashedPassword),
		RankID:                 input.RankID,
		RoleID:                 input.RoleID,
		MilitaryOrganizationID: input.MilitaryOrganizationID,
		SectionID:              input.SectionID,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return nil, dbError(err, "user")
	}
	s.logger.Info("User created", zap.Uint("user_id", user.ID))
	return s.GetUserByID(ctx, user.ID)
}

func (s *userService) GetUserByID(ctx context.Context, userID uint) (*UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, dbError(err, "user")
	}
	resp := mapUserToResponse(user)
	return &resp, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID uint, input *UpdateUserInput) (*UserResponse, error) {
	if input.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*input.Email))
		input.Email = &email
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, dbError(err, "user")
	}

	if input.Email != nil && *input.Email != user.Email {
		if err := s.checkEmailFree(ctx, *input.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = *input.Email
	}
	if input.NationalID != nil && *input.NationalID != user.NationalID {
		if err := s.checkNationalIDFree(ctx, *input.NationalID, user.ID); err != nil {
			return nil, err
		}
		user.NationalID = *input.NationalID
	}
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.ServiceName != nil {
		user.ServiceName = strings.TrimSpace(*input.ServiceName)
	}
	if input.RankID != nil {
		user.RankID = *input.RankID
	}
	if input.MilitaryOrganizationID != nil {
		user.MilitaryOrganizationID = input.MilitaryOrganizationID
	}
	if input.SectionID != nil {
		user.SectionID = input.SectionID
	}
	if err := s.checkReferences(ctx, &user.RankID, nil, user.MilitaryOrganizationID, user.SectionID); err != nil {
		return nil, err
	}

	if input.Password != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.System("could not hash new password", err)
		}
		user.Password = string(hashedPassword)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, dbError(err, "user")
	}
	return s.GetUserByID(ctx, user.ID)
}

// AssignRole sets or, with a nil roleID, removes the user's role.
func (s *userService) AssignRole(ctx context.Context, userID uint, roleID *uint) (*UserResponse, error) {
	if roleID != nil {
		if _, err := s.roles.FindByID(ctx, *roleID); err != nil {
			return nil, referenceError(err, "roleId", "role does not exist")
		}
	}
	if err := s.repo.UpdateRole(ctx, userID, roleID); err != nil {
		return nil, dbError(err, "user")
	}
	s.logger.Info("User role changed", zap.Uint("user_id", userID), zap.Any("role_id", roleID))
	return s.GetUserByID(ctx, userID)
}

func (s *userService) ListUsers(ctx context.Context, page int, pageSize int) (*PaginatedUsersResponse, error) {
	users, total, err := s.repo.FindAll(ctx, page, pageSize)
	if err != nil {
		return nil, dbError(err, "user")
	}
	resp := &PaginatedUsersResponse{
		Users:    make([]UserResponse, 0, len(users)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i := range users {
		resp.Users = append(resp.Users, mapUserToResponse(&users[i]))
	}
	return resp, nil
}

// DeleteUser soft-deletes a user. Operators cannot delete themselves.
func (s *userService) DeleteUser(ctx context.Context, userID uint, requestingUserID uint) error {
	if userID == requestingUserID {
		return apperr.ErrInvalidInput.WithField("id").WithMessage("you cannot delete your own account")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return dbError(err, "user")
	}
	if err := s.repo.Delete(ctx, user); err != nil {
		return dbError(err, "user")
	}
	s.logger.Info("User deleted", zap.Uint("user_id", userID), zap.Uint("deleted_by", requestingUserID))
	return nil
}

func (s *userService) checkEmailFree(ctx context.Context, email string, selfID uint) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return apperr.ErrDuplicateEntry.WithField("email").WithMessage("email address is already in use")
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return dbError(err, "user")
	}
	return nil
}

func (s *userService) checkNationalIDFree(ctx context.Context, nationalID string, selfID uint) error {
	taken, err := s.repo.ExistsByNationalID(ctx, nationalID, selfID)
	if err != nil {
		return dbError(err, "user")
	}
	if taken {
		return apperr.ErrDuplicateEntry.WithField("nationalId").WithMessage("national id is already registered")
	}
	return nil
}

// checkReferences verifies that referenced records exist and that a section
// belongs to the user's organization.
func (s *userService) checkReferences(ctx context.Context, rankID, roleID, orgID, sectionID *uint) error {
	if rankID != nil {
		if _, err := s.ranks.FindByID(ctx, *rankID); err != nil {
			return referenceError(err, "rankId", "rank does not exist")
		}
	}
	if roleID != nil {
		if _, err := s.roles.FindByID(ctx, *roleID); err != nil {
			return referenceError(err, "roleId", "role does not exist")
		}
	}
	if orgID != nil {
		if _, err := s.orgs.FindByID(ctx, *orgID); err != nil {
			return referenceError(err, "militaryOrganizationId", "organization does not exist")
		}
	}
	if sectionID != nil {
		section, err := s.sections.FindByID(ctx, *sectionID)
		if err != nil {
			return referenceError(err, "sectionId", "section does not exist")
		}
		if orgID == nil || section.MilitaryOrganizationID != *orgID {
			return apperr.ErrInvalidInput.WithField("sectionId").WithMessage("section does not belong to the user's organization")
		}
	}
	return nil
}

func mapUserToResponse(user *models.User) UserResponse {
	resp := UserResponse{
		ID:                     user.ID,
		Name:                   user.Name,
		ServiceName:            user.ServiceName,
		Email:                  user.Email,
		NationalID:             user.NationalID,
		MilitaryOrganizationID: user.MilitaryOrganizationID,
		SectionID:              user.SectionID,
		CreatedAt:              user.CreatedAt,
		UpdatedAt:              user.UpdatedAt,
	}
	if user.Rank.ID != 0 {
		resp.Rank = &auth.RankRef{ID: user.Rank.ID, Name: user.Rank.Name, Acronym: user.Rank.Acronym}
	}
	if user.Role != nil {
		resp.Role = &auth.OrgRef{ID: user.Role.ID, Name: user.Role.Name, Acronym: user.Role.Acronym}
	}
	return resp
}
