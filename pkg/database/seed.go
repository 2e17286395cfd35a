package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoSeed describes the demo accounts created when demo mode is on.
type DemoSeed struct {
	OwnerEmail  string
	MemberEmail string
	Password    string
	BcryptCost  int
}

const (
	DemoWorkspaceName = "Demo Workspace"
	DemoWorkspaceKey  = "DEMO"
)

// SeedDemo creates the demo owner and member accounts, the demo workspace
// and both memberships. Running it again changes nothing.
func SeedDemo(db *gorm.DB, seed DemoSeed) error {
	return db.Transaction(func(tx *gorm.DB) error {
		owner, err := seedDemoUser(tx, seed.OwnerEmail, "Demo Owner", seed)
		if err != nil {
			return err
		}
		member, err := seedDemoUser(tx, seed.MemberEmail, "Demo Member", seed)
		if err != nil {
			return err
		}

		var workspace model.Workspace
		err = tx.Where("workspace_key = ?", DemoWorkspaceKey).First(&workspace).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			workspace = model.Workspace{Name: DemoWorkspaceName, Key: DemoWorkspaceKey, OwnerID: owner.ID}
			err = tx.Create(&workspace).Error
		}
		if err != nil {
			return fmt.Errorf("seed demo workspace: %w", err)
		}

		for userID, role := range map[uint]model.WorkspaceRole{owner.ID: model.RoleOwner, member.ID: model.RoleMember} {
			m := model.Membership{WorkspaceID: workspace.ID, UserID: userID}
			if err := tx.Where(&m).Attrs(model.Membership{Role: role}).FirstOrCreate(&m).Error; err != nil {
				return fmt.Errorf("seed demo membership: %w", err)
			}
		}
		return nil
	})
}

func seedDemoUser(tx *gorm.DB, email, name string, seed DemoSeed) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user model.User
	result := tx.Where("email = ?", email).First(&user)
	if result.Error == nil {
		return &user, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	cost := seed.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(seed.Password), cost)
	if err != nil {
		return nil, err
	}

	user = model.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hashedPassword),
		PasswordSet:  true,
		Strategy:     model.StrategyDemo,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("seed demo user %s: %w", email, err)
	}
	return &user, nil
}
