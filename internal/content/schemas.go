// internal/content/schemas.go
//
// Registered schemas, one per content collection.  List endpoints are
// validated element-wise; the resume endpoint returns a single document.
package content

import "github.com/yanizio/folio/internal/schema"

var (
	ExperiencesSchema    = schema.New[[]Experience]("experiences")
	ProjectsSchema       = schema.New[[]Project]("projects")
	CertificationsSchema = schema.New[[]Certification]("certifications")
	PlacesSchema         = schema.New[[]Place]("places")
	ResumeSchema         = schema.New[Resume]("resume")
)

// SchemaFor returns the type-erased checker the fetch client attaches for
// a content type, or nil for unknown types.
func SchemaFor(t Type) schema.Checker {
	switch t {
	case Experiences:
		return ExperiencesSchema
	case Projects, FeaturedProjects:
		return ProjectsSchema
	case Certifications:
		return CertificationsSchema
	case Places:
		return PlacesSchema
	case ResumeDoc:
		return ResumeSchema
	default:
		return nil
	}
}
