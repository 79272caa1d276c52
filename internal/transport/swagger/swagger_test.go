package swagger_test

import (
	"net/http/httptest"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openlearn/learning-management/internal/transport/swagger"
)

var _ = Describe("OpenAPI document", func() {
	It("is a valid OpenAPI 3 document", func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromFile("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Validate(loader.Context)).To(Succeed())
	})

	It("documents the authentication entry points", func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromFile("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())

		for _, path := range []string{"/auth/login", "/auth/refresh", "/auth/logout"} {
			item := doc.Paths.Find(path)
			Expect(item).NotTo(BeNil(), "missing path %s", path)
			Expect(item.Post).NotTo(BeNil(), "missing POST on %s", path)
		}
		Expect(doc.Components.SecuritySchemes).To(HaveKey("bearerAuth"))
	})
})

var _ = Describe("Handler", func() {
	It("serves the swagger UI", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/swagger/index.html", nil)

		swagger.Handler().ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(200))
		Expect(rec.Body.String()).To(ContainSubstring("swagger"))
	})
})
