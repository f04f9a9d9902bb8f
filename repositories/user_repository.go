package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"milorg-admin/models"
)

// UserRepository defines User-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	// FindIdentity loads the user with everything a session identity needs.
	FindIdentity(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByNationalID(ctx context.Context, nationalID string, excludeID uint) (bool, error)
	Update(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, userID uint, roleID *uint) error
	Delete(ctx context.Context, user *models.User) error
	FindAll(ctx context.Context, page int, pageSize int) ([]models.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

var _ UserRepository = (*userRepository)(nil)

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Rank").
		Preload("Role").
		Preload("MilitaryOrganization").
		Preload("Section").
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindIdentity(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Rank").
		Preload("Role.Permissions").
		Preload("Role.MilitaryOrganizations").
		Preload("Role.Sections").
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByNationalID(ctx context.Context, nationalID string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("national_id = ?", nationalID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

func (r *userRepository) UpdateRole(ctx context.Context, userID uint, roleID *uint) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role_id", roleID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft-deletes the user.
func (r *userRepository) Delete(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Delete(user).Error
}

// FindAll returns one page of users ordered by name
func (r *userRepository) FindAll(ctx context.Context, page int, pageSize int) ([]models.User, int64, error) {
	offset := (page - 1) * pageSize
	var users []models.User
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Rank").Preload("Role").
		Order("name").Offset(offset).Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
