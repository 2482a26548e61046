package bootstrap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
	"library-manager/internal/service"
)

// Default credentials created on first run. Change these after the first login.
const defaultPassword = "Aa123456"

var seedUsers = []service.RegisterInput{
	{
		Username:  "admin@mail.com",
		Password:  defaultPassword,
		FirstName: "admin",
		LastName:  "user",
		Role:      domain.RoleAdmin,
	},
	{
		Username:  "librarian@mail.com",
		Password:  defaultPassword,
		FirstName: "librarian",
		LastName:  "user",
		Role:      domain.RoleLibrarian,
	},
	{
		Username:  "patron@mail.com",
		Password:  defaultPassword,
		FirstName: "patron",
		LastName:  "user",
		Role:      domain.RolePatron,
	},
}

// SeedUsers creates the default admin, librarian and patron accounts when the
// user table is empty. It is a no-op on every subsequent start.
func SeedUsers(ctx context.Context, users repository.UserRepository, svc service.UserService, logger *logrus.Logger) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, input := range seedUsers {
		user, err := svc.Register(ctx, input)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", input.Username, err)
		}
		logger.Infof("seeded %s account %s", user.Role, user.Username)
	}
	return nil
}
