package group_test

import (
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/audit"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
	"github.com/openlearn/learning-management/internal/group"
)

type mockGroupRepo struct {
	nextID  int64
	byID    map[int64]*identity.Group
	byName  map[string]*identity.Group
	members map[int64][]identity.User
	perms   map[int64]identity.Permission
	grants  map[int64][]identity.GroupPermission
	entries []audit.Entry
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{
		nextID:  1,
		byID:    map[int64]*identity.Group{},
		byName:  map[string]*identity.Group{},
		members: map[int64][]identity.User{},
		perms:   map[int64]identity.Permission{},
		grants:  map[int64][]identity.GroupPermission{},
	}
}

func (m *mockGroupRepo) GetByID(groupID int64) (*identity.Group, error) {
	return m.byID[groupID], nil
}

func (m *mockGroupRepo) GetByName(name string) (*identity.Group, error) {
	return m.byName[name], nil
}

func (m *mockGroupRepo) List(limit, offset int) ([]identity.Group, error) {
	out := make([]identity.Group, 0, len(m.byID))
	for _, g := range m.byID {
		out = append(out, *g)
	}
	return out, nil
}

func (m *mockGroupRepo) Create(row *identity.Group, entry audit.Entry) error {
	if m.byName[row.Name] != nil {
		return group.ErrDuplicate
	}
	row.ID = m.nextID
	m.nextID++
	m.byID[row.ID] = row
	m.byName[row.Name] = row
	entry.ObjectID = audit.NewObjectID(row.ID)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockGroupRepo) Update(row *identity.Group, entry audit.Entry) error {
	m.byID[row.ID] = row
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockGroupRepo) Members(groupID int64) ([]identity.User, error) {
	return m.members[groupID], nil
}

func (m *mockGroupRepo) PermissionsByIDs(ids []int64) ([]identity.Permission, error) {
	out := make([]identity.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockGroupRepo) ReplacePermissions(groupID int64, grants []identity.GroupPermission, entries []audit.Entry) error {
	m.grants[groupID] = grants
	m.entries = append(m.entries, entries...)
	return nil
}

var _ = Describe("Group Service", func() {
	var (
		repo    *mockGroupRepo
		service *group.Service
	)

	BeforeEach(func() {
		repo = newMockGroupRepo()
		service = group.NewService(repo, slog.Default())
	})

	Describe("Create", func() {
		It("creates a group and defaults the description", func() {
			view, err := service.Create(1, group.CreateDTO{Name: "Teachers", Abbreviation: "TCH"})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Name).To(Equal("Teachers"))
			Expect(view.Description).To(Equal("N/A"))
		})

		It("conflicts on a duplicate name", func() {
			_, err := service.Create(1, group.CreateDTO{Name: "Teachers", Abbreviation: "TCH"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(1, group.CreateDTO{Name: "Teachers", Abbreviation: "T2"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})

		It("requires a name and abbreviation", func() {
			_, err := service.Create(1, group.CreateDTO{Name: "   "})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("audits the insert", func() {
			_, err := service.Create(7, group.CreateDTO{Name: "Teachers", Abbreviation: "TCH"})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.entries).To(HaveLen(1))
			Expect(repo.entries[0].Flag).To(Equal(audit.InsertFlag))
			Expect(repo.entries[0].TableName).To(Equal("groups"))
		})
	})

	Describe("AssignPermissions", func() {
		BeforeEach(func() {
			_, err := service.Create(1, group.CreateDTO{Name: "Teachers", Abbreviation: "TCH"})
			Expect(err).NotTo(HaveOccurred())
			repo.perms[3] = identity.Permission{ID: 3, Codename: "CAN_CREATE_ASSESSMENT", Flag: 3}
		})

		It("replaces the stored grant set", func() {
			Expect(service.AssignPermissions(1, 1, group.AssignPermissionsDTO{PermissionIDs: []int64{3}})).To(Succeed())
			Expect(repo.grants[1]).To(HaveLen(1))
			Expect(repo.grants[1][0].PermissionID).To(Equal(int64(3)))
		})

		It("rejects unknown permission ids", func() {
			err := service.AssignPermissions(1, 1, group.AssignPermissionsDTO{PermissionIDs: []int64{3, 404}})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})
	})

	Describe("Members", func() {
		It("fails for an unknown group", func() {
			_, err := service.Members(404)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})

		It("lists the group's users", func() {
			_, err := service.Create(1, group.CreateDTO{Name: "Teachers", Abbreviation: "TCH"})
			Expect(err).NotTo(HaveOccurred())
			repo.members[1] = []identity.User{{ID: 5, Username: "jdoe", Fullname: "Jane Doe"}}

			views, err := service.Members(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Username).To(Equal("jdoe"))
		})
	})
})
