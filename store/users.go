package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"campus-canteen/models"
	"campus-canteen/utils"
)

type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
	ShopID   *uint
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new account. Students start pending; every other role
// is created approved. Staff must name an existing shop.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, in.Role)
	}
	if in.Role.IsStaff() {
		if in.ShopID == nil {
			return nil, fmt.Errorf("%w: %s needs a shop", ErrInvalidRole, in.Role)
		}
		if _, err := s.GetShop(ctx, *in.ShopID); err != nil {
			return nil, err
		}
	} else {
		in.ShopID = nil
	}

	email := normalizeEmail(in.Email)
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := models.User{
		Name:           in.Name,
		Email:          email,
		Role:           in.Role,
		ShopID:         in.ShopID,
		ApprovalStatus: models.ApprovalApproved,
	}
	if in.Role == models.RoleStudent {
		user.ApprovalStatus = models.ApprovalPending
	}
	if err := user.HashPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, uniqueViolation(err, ErrEmailTaken)
	}
	return &user, nil
}

// Authenticate returns the approved user matching email and password.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := user.CheckPassword(password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.ApprovalStatus != models.ApprovalApproved {
		return nil, ErrNotApproved
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users with role, or all users when role is empty.
func (s *Store) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	query := s.db.WithContext(ctx)
	if role != "" {
		query = query.Where("role = ?", role)
	}
	users := []models.User{}
	if err := query.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) ListPendingStudents(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.db.WithContext(ctx).
		Where("role = ? AND approval_status = ?", models.RoleStudent, models.ApprovalPending).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

// ReviewStudent approves or rejects a pending student.
func (s *Store) ReviewStudent(ctx context.Context, id uint, approve bool) (*models.User, error) {
	decision := models.ApprovalRejected
	if approve {
		decision = models.ApprovalApproved
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role = ? AND approval_status = ?", id, models.RoleStudent, models.ApprovalPending).
		Update("approval_status", decision)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetUser(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotPending
	}

	s.log.Info("student reviewed", "action", utils.ActionStudentReviewed, "user_id", id, "decision", decision)
	return s.GetUser(ctx, id)
}

// EnsureSuperadmin creates the bootstrap superadmin if none exists yet.
func (s *Store) EnsureSuperadmin(ctx context.Context, email, password string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleSuperadmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if email == "" || password == "" {
		s.log.Warn("no superadmin exists and SUPERADMIN_EMAIL/SUPERADMIN_PASSWORD are not set")
		return nil
	}

	user, err := s.CreateUser(ctx, NewUser{
		Name:     "Superadmin",
		Email:    email,
		Password: password,
		Role:     models.RoleSuperadmin,
	})
	if err != nil {
		return fmt.Errorf("seed superadmin: %w", err)
	}
	s.log.Info("superadmin seeded", "action", utils.ActionSuperadminSeeded, "user_id", user.ID)
	return nil
}
