// internal/content/model.go
//
// Wire models for every CMS content type.
//
// Context
// -------
// These structs are the single source of truth for the shapes the Schema
// Registry enforces.  Conventions:
//
//   • Required fields carry `validate:"required"`; optional fields are
//     pointers or `omitempty` with no tag.  There is no implicit leniency.
//   • Enumerated fields are closed sets via `oneof`; an unrecognized
//     literal is a validation failure, not a silent pass-through.
//   • Media is referenced by opaque asset ID.  The CMS owns the bytes; we
//     hold only the reference plus render hints.
//
// List endpoints return items pre-ordered by the backend (`order` integer,
// date tiebreak); nothing downstream resorts.
package content

import "time"

//
// Media references
//

// Crop is a fractional crop rectangle for responsive rendering.
type Crop struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Hotspot marks the focal point an image should keep in view.
type Hotspot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Image references a remote image asset plus render hints.
type Image struct {
	AssetID string   `json:"assetId" validate:"required"`
	Alt     string   `json:"alt,omitempty"`
	Crop    *Crop    `json:"crop,omitempty"`
	Hotspot *Hotspot `json:"hotspot,omitempty"`
}

// File references a remote binary asset (the resume PDF).
type File struct {
	AssetID  string `json:"assetId"  validate:"required"`
	MIMEType string `json:"mimeType" validate:"required"`
	Size     int64  `json:"size"     validate:"gte=0"`
}

//
// Content items
//

// Experience is one career or education entry.
type Experience struct {
	ID        string    `json:"_id"        validate:"required"`
	Type      string    `json:"_type"      validate:"required,eq=experience"`
	CreatedAt time.Time `json:"_createdAt" validate:"required"`
	UpdatedAt time.Time `json:"_updatedAt" validate:"required"`

	Title       string  `json:"title"    validate:"required"`
	Org         string  `json:"org"      validate:"required"`
	Category    string  `json:"category" validate:"required,oneof=work education volunteer"`
	Order       int     `json:"order"`
	StartDate   string  `json:"startDate" validate:"required"`
	EndDate     *string `json:"endDate,omitempty"`
	Description string  `json:"description,omitempty"`
	Logo        *Image  `json:"logo,omitempty"`
}

// Project is one portfolio project.
type Project struct {
	ID        string    `json:"_id"        validate:"required"`
	Type      string    `json:"_type"      validate:"required,eq=project"`
	CreatedAt time.Time `json:"_createdAt" validate:"required"`
	UpdatedAt time.Time `json:"_updatedAt" validate:"required"`

	Title       string   `json:"title"    validate:"required"`
	Slug        string   `json:"slug"     validate:"required"`
	Category    string   `json:"category" validate:"required,oneof=web mobile cli library"`
	Order       int      `json:"order"`
	Featured    bool     `json:"featured"`
	Description string   `json:"description,omitempty"`
	RepoURL     *string  `json:"repoUrl,omitempty"`
	LiveURL     *string  `json:"liveUrl,omitempty"`
	Tech        []string `json:"tech,omitempty"`
	Cover       *Image   `json:"cover,omitempty"`
}

// Certification is one earned credential.
type Certification struct {
	ID        string    `json:"_id"        validate:"required"`
	Type      string    `json:"_type"      validate:"required,eq=certification"`
	CreatedAt time.Time `json:"_createdAt" validate:"required"`
	UpdatedAt time.Time `json:"_updatedAt" validate:"required"`

	Title         string  `json:"title"    validate:"required"`
	Issuer        string  `json:"issuer"   validate:"required"`
	Category      string  `json:"category" validate:"required,oneof=cloud development security data"`
	Order         int     `json:"order"`
	IssueDate     string  `json:"issueDate" validate:"required"`
	ExpiryDate    *string `json:"expiryDate,omitempty"`
	CredentialID  *string `json:"credentialId,omitempty"`
	CredentialURL *string `json:"credentialUrl,omitempty"`
	Badge         *Image  `json:"badge,omitempty"`
}

// Place is one visited location on the travel map.
type Place struct {
	ID        string    `json:"_id"        validate:"required"`
	Type      string    `json:"_type"      validate:"required,eq=place"`
	CreatedAt time.Time `json:"_createdAt" validate:"required"`
	UpdatedAt time.Time `json:"_updatedAt" validate:"required"`

	Title       string  `json:"title" validate:"required"`
	Lat         float64 `json:"lat"   validate:"gte=-90,lte=90"`
	Lng         float64 `json:"lng"   validate:"gte=-180,lte=180"`
	Order       int     `json:"order"`
	VisitedAt   *string `json:"visitedAt,omitempty"`
	Description string  `json:"description,omitempty"`
	Photo       *Image  `json:"photo,omitempty"`
}

// Resume is the singleton resume document.
type Resume struct {
	ID        string    `json:"_id"        validate:"required"`
	Type      string    `json:"_type"      validate:"required,eq=resume"`
	CreatedAt time.Time `json:"_createdAt" validate:"required"`
	UpdatedAt time.Time `json:"_updatedAt" validate:"required"`

	Title string `json:"title" validate:"required"`
	File  File   `json:"file"  validate:"required"`
}

//
// Identifier — shared lookup key for client-side by-ID scans
//

func (e Experience) Identifier() string    { return e.ID }
func (p Project) Identifier() string       { return p.ID }
func (c Certification) Identifier() string { return c.ID }
func (p Place) Identifier() string         { return p.ID }
func (r Resume) Identifier() string        { return r.ID }

// SlugOf lets the query layer look projects up by slug as well as ID.
func (p Project) SlugOf() string { return p.Slug }
