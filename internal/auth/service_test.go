package auth_test

import (
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/auth"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

type mockAuthRepo struct {
	usersByName map[string]*identity.User
	usersByID   map[int64]*identity.User

	lastLoginStamped map[int64]time.Time
	passwordUpdated  map[int64]string

	permsByCodename map[string]*identity.Permission
	grants          map[[2]int64]bool

	failLookups bool
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		usersByName:      map[string]*identity.User{},
		usersByID:        map[int64]*identity.User{},
		lastLoginStamped: map[int64]time.Time{},
		passwordUpdated:  map[int64]string{},
		permsByCodename:  map[string]*identity.Permission{},
		grants:           map[[2]int64]bool{},
	}
}

func (m *mockAuthRepo) addUser(u *identity.User) {
	m.usersByName[u.Username] = u
	m.usersByID[u.ID] = u
}

func (m *mockAuthRepo) GetByUsername(username string) (*identity.User, error) {
	if m.failLookups {
		return nil, errFailure
	}
	return m.usersByName[username], nil
}

func (m *mockAuthRepo) GetByID(userID int64) (*identity.User, error) {
	if m.failLookups {
		return nil, errFailure
	}
	return m.usersByID[userID], nil
}

func (m *mockAuthRepo) UpdateLastLogin(userID int64, at time.Time) error {
	m.lastLoginStamped[userID] = at
	return nil
}

func (m *mockAuthRepo) UpdatePassword(userID int64, passwordHash string) error {
	m.passwordUpdated[userID] = passwordHash
	return nil
}

func (m *mockAuthRepo) GetPermissionByCodename(codename string) (*identity.Permission, error) {
	if m.failLookups {
		return nil, errFailure
	}
	return m.permsByCodename[codename], nil
}

func (m *mockAuthRepo) HasGrant(userID, permissionID int64) (bool, error) {
	if m.failLookups {
		return false, errFailure
	}
	return m.grants[[2]int64{userID, permissionID}], nil
}

var errFailure = internal.NewInternalError("boom", nil)

func mustHash(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	Expect(err).NotTo(HaveOccurred())
	return string(hash)
}

var _ = Describe("Auth Service", func() {
	var (
		repo    *mockAuthRepo
		service *auth.Service
	)

	BeforeEach(func() {
		repo = newMockAuthRepo()
		tokens := auth.NewJWTTokenGenerator(
			"test-access-secret-0123456789abcdef",
			"test-refresh-secret-0123456789abcdef",
			15*time.Minute,
			24*time.Hour,
		)
		service = auth.NewService(repo, tokens, bcrypt.MinCost, slog.Default())
	})

	Describe("Authenticate", func() {
		BeforeEach(func() {
			repo.addUser(&identity.User{
				ID:           1,
				Username:     "jdoe",
				Fullname:     "Jane Doe",
				PasswordHash: mustHash("s3cret"),
				IsActive:     true,
			})
		})

		Context("with valid credentials", func() {
			It("returns a token pair", func() {
				tokens, err := service.Authenticate(auth.LoginDTO{Username: "jdoe", Password: "s3cret"})
				Expect(err).NotTo(HaveOccurred())
				Expect(tokens.AccessToken).NotTo(BeEmpty())
				Expect(tokens.RefreshToken).NotTo(BeEmpty())
			})

			It("stamps the last login", func() {
				_, err := service.Authenticate(auth.LoginDTO{Username: "jdoe", Password: "s3cret"})
				Expect(err).NotTo(HaveOccurred())
				Expect(repo.lastLoginStamped).To(HaveKey(int64(1)))
			})
		})

		Context("with a wrong password", func() {
			It("returns invalid credentials", func() {
				_, err := service.Authenticate(auth.LoginDTO{Username: "jdoe", Password: "nope"})
				Expect(err).To(Equal(internal.ErrInvalidCredentials))
			})
		})

		Context("with an unknown username", func() {
			It("returns the same invalid credentials error", func() {
				_, err := service.Authenticate(auth.LoginDTO{Username: "ghost", Password: "s3cret"})
				Expect(err).To(Equal(internal.ErrInvalidCredentials))
			})
		})

		Context("with an inactive account", func() {
			BeforeEach(func() {
				repo.addUser(&identity.User{
					ID:           2,
					Username:     "dormant",
					PasswordHash: mustHash("s3cret"),
					IsActive:     false,
				})
			})

			It("refuses the login", func() {
				_, err := service.Authenticate(auth.LoginDTO{Username: "dormant", Password: "s3cret"})
				Expect(err).To(Equal(internal.ErrUserInactive))
			})
		})

		Context("with missing fields", func() {
			It("returns a validation error", func() {
				_, err := service.Authenticate(auth.LoginDTO{Username: "jdoe"})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			})
		})
	})

	Describe("Token round trip", func() {
		BeforeEach(func() {
			repo.addUser(&identity.User{
				ID:           7,
				Username:     "jdoe",
				PasswordHash: mustHash("s3cret"),
				IsActive:     true,
			})
		})

		It("validates an issued access token", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Username: "jdoe", Password: "s3cret"})
			Expect(err).NotTo(HaveOccurred())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal("7"))
			Expect(claims.Username).To(Equal("jdoe"))
		})

		It("refreshes tokens for an active user", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Username: "jdoe", Password: "s3cret"})
			Expect(err).NotTo(HaveOccurred())

			fresh, err := service.RefreshTokens(tokens.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.AccessToken).NotTo(BeEmpty())
		})

		It("rejects garbage tokens", func() {
			_, err := service.ValidateAccessToken("not.a.token")
			Expect(err).To(HaveOccurred())
		})

		It("refuses to refresh for a deactivated user", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Username: "jdoe", Password: "s3cret"})
			Expect(err).NotTo(HaveOccurred())

			repo.usersByID[7].IsActive = false

			_, err = service.RefreshTokens(tokens.RefreshToken)
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})

	Describe("ChangePassword", func() {
		BeforeEach(func() {
			repo.addUser(&identity.User{
				ID:           3,
				Username:     "jdoe",
				PasswordHash: mustHash("oldpass"),
				IsActive:     true,
			})
		})

		It("replaces the stored hash", func() {
			err := service.ChangePassword(3, auth.ChangePasswordDTO{
				OldPassword:        "oldpass",
				NewPassword:        "newpass",
				NewPasswordConfirm: "newpass",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.passwordUpdated).To(HaveKey(int64(3)))

			stored := repo.passwordUpdated[3]
			Expect(bcrypt.CompareHashAndPassword([]byte(stored), []byte("newpass"))).To(Succeed())
		})

		It("rejects a wrong old password", func() {
			err := service.ChangePassword(3, auth.ChangePasswordDTO{
				OldPassword:        "wrong",
				NewPassword:        "newpass",
				NewPasswordConfirm: "newpass",
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(repo.passwordUpdated).To(BeEmpty())
		})

		It("rejects a mismatched confirmation", func() {
			err := service.ChangePassword(3, auth.ChangePasswordDTO{
				OldPassword:        "oldpass",
				NewPassword:        "newpass",
				NewPasswordConfirm: "other",
			})
			Expect(err).To(HaveOccurred())
			Expect(repo.passwordUpdated).To(BeEmpty())
		})
	})
})
