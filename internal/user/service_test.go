package user_test

import (
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gstruct"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/audit"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
	"github.com/openlearn/learning-management/internal/user"
)

type mockUserRepo struct {
	nextID  int64
	byID    map[int64]*identity.User
	byName  map[string]*identity.User
	groups  map[int64]bool
	perms   map[int64]identity.Permission
	grants  map[int64][]identity.UserPermission
	entries []audit.Entry

	duplicateOnCreate bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		nextID: 1,
		byID:   map[int64]*identity.User{},
		byName: map[string]*identity.User{},
		groups: map[int64]bool{},
		perms:  map[int64]identity.Permission{},
		grants: map[int64][]identity.UserPermission{},
	}
}

func (m *mockUserRepo) GetByID(userID int64) (*identity.User, error) {
	return m.byID[userID], nil
}

func (m *mockUserRepo) GetByUsername(username string) (*identity.User, error) {
	return m.byName[username], nil
}

func (m *mockUserRepo) List(limit, offset int) ([]identity.User, error) {
	out := make([]identity.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUserRepo) Search(query string, limit, offset int) ([]identity.User, error) {
	return m.List(limit, offset)
}

func (m *mockUserRepo) Create(row *identity.User, entry audit.Entry) error {
	if m.duplicateOnCreate || m.byName[row.Username] != nil {
		return user.ErrDuplicate
	}
	row.ID = m.nextID
	m.nextID++
	m.byID[row.ID] = row
	m.byName[row.Username] = row
	entry.ObjectID = audit.NewObjectID(row.ID)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockUserRepo) Update(row *identity.User, entry audit.Entry) error {
	m.byID[row.ID] = row
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockUserRepo) GroupExists(groupID int64) (bool, error) {
	return m.groups[groupID], nil
}

func (m *mockUserRepo) PermissionsByIDs(ids []int64) ([]identity.Permission, error) {
	out := make([]identity.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockUserRepo) PermissionsOf(userID int64) ([]identity.Permission, error) {
	out := make([]identity.Permission, 0)
	for _, g := range m.grants[userID] {
		out = append(out, m.perms[g.PermissionID])
	}
	return out, nil
}

func (m *mockUserRepo) ReplacePermissions(userID int64, grants []identity.UserPermission, entries []audit.Entry) error {
	m.grants[userID] = grants
	m.entries = append(m.entries, entries...)
	return nil
}

type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

var _ = Describe("User Service", func() {
	var (
		repo    *mockUserRepo
		service *user.Service
	)

	BeforeEach(func() {
		repo = newMockUserRepo()
		service = user.NewService(repo, plainHasher{}, nil, "welcome123", slog.Default())
	})

	Describe("Register", func() {
		It("creates an account with the default password hash", func() {
			view, err := service.Register(99, user.RegisterDTO{Username: "Alice", Fullname: "Alice A."})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Username).To(Equal("alice"))

			stored := repo.byName["alice"]
			Expect(stored).NotTo(BeNil())
			Expect(stored.PasswordHash).To(Equal("hashed:welcome123"))
			Expect(stored.RegisteredBy).To(gstruct.PointTo(Equal(int64(99))))
		})

		It("records an insert in the trail attributed to the actor", func() {
			_, err := service.Register(99, user.RegisterDTO{Username: "alice", Fullname: "Alice A."})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.entries).To(HaveLen(1))
			Expect(repo.entries[0].Flag).To(Equal(audit.InsertFlag))
			Expect(repo.entries[0].ActorID).To(gstruct.PointTo(Equal(int64(99))))
		})

		It("conflicts on a taken username leaving exactly one row", func() {
			_, err := service.Register(99, user.RegisterDTO{Username: "alice", Fullname: "Alice A."})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Register(99, user.RegisterDTO{Username: "alice", Fullname: "Other Alice"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
			Expect(repo.byID).To(HaveLen(1))
		})

		It("converts a store duplicate error into the same conflict", func() {
			repo.duplicateOnCreate = true
			_, err := service.Register(99, user.RegisterDTO{Username: "alice", Fullname: "Alice A."})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})

		It("rejects an unknown group", func() {
			groupID := int64(42)
			_, err := service.Register(99, user.RegisterDTO{Username: "alice", Fullname: "Alice A.", GroupID: &groupID})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})
	})

	Describe("AssignPermissions", func() {
		BeforeEach(func() {
			_, err := service.Register(99, user.RegisterDTO{Username: "alice", Fullname: "Alice A."})
			Expect(err).NotTo(HaveOccurred())
			repo.perms[1] = identity.Permission{ID: 1, Codename: "CAN_CREATE_COURSE", Flag: 1}
			repo.perms[2] = identity.Permission{ID: 2, Codename: "CAN_ASSIGN_USER_COURSE", Flag: 2}
		})

		It("replaces the grant set wholesale", func() {
			Expect(service.AssignPermissions(99, 1, user.AssignPermissionsDTO{PermissionIDs: []int64{1, 2}})).To(Succeed())
			Expect(repo.grants[1]).To(HaveLen(2))

			Expect(service.AssignPermissions(99, 1, user.AssignPermissionsDTO{PermissionIDs: []int64{2}})).To(Succeed())
			Expect(repo.grants[1]).To(HaveLen(1))
			Expect(repo.grants[1][0].PermissionID).To(Equal(int64(2)))
		})

		It("clears all grants when given an empty set", func() {
			Expect(service.AssignPermissions(99, 1, user.AssignPermissionsDTO{PermissionIDs: []int64{1}})).To(Succeed())
			Expect(service.AssignPermissions(99, 1, user.AssignPermissionsDTO{})).To(Succeed())

			views, err := service.Permissions(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(BeEmpty())
		})

		It("rejects unknown permission ids", func() {
			err := service.AssignPermissions(99, 1, user.AssignPermissionsDTO{PermissionIDs: []int64{1, 77}})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
			Expect(repo.grants[1]).To(BeEmpty())
		})

		It("rejects an unknown target user", func() {
			err := service.AssignPermissions(99, 1234, user.AssignPermissionsDTO{PermissionIDs: []int64{1}})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})

		It("audits the delete and each insert", func() {
			repo.entries = nil
			Expect(service.AssignPermissions(99, 1, user.AssignPermissionsDTO{PermissionIDs: []int64{1, 2}})).To(Succeed())
			Expect(repo.entries).To(HaveLen(3))
			Expect(repo.entries[0].Flag).To(Equal(audit.DeleteFlag))
			Expect(repo.entries[1].Flag).To(Equal(audit.InsertFlag))
			Expect(repo.entries[1].ObjectID.String()).To(Equal("1:1"))
		})
	})

	Describe("Update", func() {
		BeforeEach(func() {
			_, err := service.Register(99, user.RegisterDTO{Username: "alice", Fullname: "Alice A."})
			Expect(err).NotTo(HaveOccurred())
		})

		It("applies partial changes and audits an update", func() {
			repo.entries = nil
			inactive := false
			view, err := service.Update(99, 1, user.UpdateDTO{IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.IsActive).To(BeFalse())
			Expect(repo.entries).To(HaveLen(1))
			Expect(repo.entries[0].Flag).To(Equal(audit.UpdateFlag))
		})

		It("is a no-op when nothing changes", func() {
			repo.entries = nil
			_, err := service.Update(99, 1, user.UpdateDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.entries).To(BeEmpty())
		})
	})
})
