package auth_test

import (
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openlearn/learning-management/internal/auth"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

var _ = Describe("Access Gate", func() {
	var (
		repo *mockAuthRepo
		gate *auth.Gate

		member *auth.User
		staff  *auth.User
		root   *auth.User
	)

	BeforeEach(func() {
		repo = newMockAuthRepo()
		gate = auth.NewGate(repo, slog.Default())

		member = &auth.User{ID: 10, Username: "member", IsActive: true}
		staff = &auth.User{ID: 11, Username: "staff", IsActive: true, IsStaff: true}
		root = &auth.User{ID: 12, Username: "root", IsActive: true, IsSuperuser: true}

		repo.permsByCodename[auth.PermCanCreateCourse] = &identity.Permission{
			ID:       1,
			Codename: auth.PermCanCreateCourse,
			Flag:     1,
		}
	})

	Describe("CheckAuthenticated", func() {
		It("denies a missing principal toward login", func() {
			Expect(gate.CheckAuthenticated(nil)).To(Equal(auth.DeniedUnauthenticated))
		})

		It("denies an inactive principal toward login", func() {
			Expect(gate.CheckAuthenticated(&auth.User{ID: 5})).To(Equal(auth.DeniedUnauthenticated))
		})

		It("allows an active principal", func() {
			Expect(gate.CheckAuthenticated(member)).To(Equal(auth.Allowed))
		})
	})

	Describe("CheckStaff", func() {
		It("presents a non-staff member with a missing page", func() {
			Expect(gate.CheckStaff(member)).To(Equal(auth.DeniedNotFound))
		})

		It("allows staff", func() {
			Expect(gate.CheckStaff(staff)).To(Equal(auth.Allowed))
		})

		It("does not allow a superuser without the staff flag", func() {
			Expect(gate.CheckStaff(root)).To(Equal(auth.DeniedNotFound))
		})
	})

	Describe("CheckSuperuser", func() {
		It("denies staff without the superuser flag", func() {
			Expect(gate.CheckSuperuser(staff)).To(Equal(auth.DeniedNotFound))
		})

		It("allows a superuser", func() {
			Expect(gate.CheckSuperuser(root)).To(Equal(auth.Allowed))
		})
	})

	Describe("CheckPermission", func() {
		It("sends anonymous callers to login", func() {
			Expect(gate.CheckPermission(nil, auth.PermCanCreateCourse)).To(Equal(auth.DeniedUnauthenticated))
		})

		It("short-circuits for superusers without touching grants", func() {
			repo.failLookups = true
			Expect(gate.CheckPermission(root, auth.PermCanCreateCourse)).To(Equal(auth.Allowed))
		})

		It("denies when no grant exists", func() {
			Expect(gate.CheckPermission(member, auth.PermCanCreateCourse)).To(Equal(auth.DeniedNotFound))
		})

		It("allows when a direct grant exists", func() {
			repo.grants[[2]int64{member.ID, 1}] = true
			Expect(gate.CheckPermission(member, auth.PermCanCreateCourse)).To(Equal(auth.Allowed))
		})

		It("denies an unprovisioned codename exactly like a missing grant", func() {
			Expect(gate.CheckPermission(member, "CAN_DO_ANYTHING")).To(Equal(auth.DeniedNotFound))
		})

		It("fails closed when the grant lookup errors", func() {
			repo.failLookups = true
			Expect(gate.CheckPermission(member, auth.PermCanCreateCourse)).To(Equal(auth.DeniedNotFound))
		})
	})
})
