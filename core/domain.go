package core

import (
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
)

const (
	RoleStudent   = "STUDENT"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"

	rolePrefix = "ROLE_"
)

type ContentType string

const (
	ContentTypeGuide        ContentType = "GUIDE"
	ContentTypeTutorial     ContentType = "TUTORIAL"
	ContentTypeFAQ          ContentType = "FAQ"
	ContentTypeNews         ContentType = "NEWS"
	ContentTypeAnnouncement ContentType = "ANNOUNCEMENT"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeGuide, ContentTypeTutorial, ContentTypeFAQ, ContentTypeNews, ContentTypeAnnouncement:
		return true
	}
	return false
}

type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "DRAFT"
	ContentStatusPublished ContentStatus = "PUBLISHED"
	ContentStatusArchived  ContentStatus = "ARCHIVED"
)

func (s ContentStatus) Valid() bool {
	switch s {
	case ContentStatusDraft, ContentStatusPublished, ContentStatusArchived:
		return true
	}
	return false
}

type ModerationAction string

const (
	ModerationApprove ModerationAction = "approve"
	ModerationReject  ModerationAction = "reject"
)

// Credential is the locally held token pair.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// AuthResponse is returned by sign-in and refresh.
type AuthResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	Type         string   `json:"type,omitempty"`
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
}

// Profile builds a user profile from the token response, with role names
// stripped of the backend authority prefix.
func (r AuthResponse) Profile() *UserProfile {
	roles := make([]Role, 0, len(r.Roles))
	for _, role := range r.Roles {
		name := NormalizeRoleName(role)
		if name == "" {
			continue
		}
		roles = append(roles, Role{Name: name})
	}
	return &UserProfile{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		IsActive: true,
		Roles:    roles,
	}
}

func NormalizeRoleName(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	return strings.TrimPrefix(role, rolePrefix)
}

type Role struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UserProfile struct {
	ID           int64         `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	IsActive     bool          `json:"isActive"`
	Roles        []Role        `json:"roles"`
	FieldOfStudy *FieldOfStudy `json:"kierunek,omitempty"`
	CreatedAt    string        `json:"createdAt,omitempty"`
	UpdatedAt    string        `json:"updatedAt,omitempty"`
}

func (u *UserProfile) HasRole(role string) bool {
	if u == nil {
		return false
	}
	role = NormalizeRoleName(role)
	for _, candidate := range u.Roles {
		if NormalizeRoleName(candidate.Name) == role {
			return true
		}
	}
	return false
}

func (u *UserProfile) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

func (u *UserProfile) clone() *UserProfile {
	if u == nil {
		return nil
	}
	copied := *u
	copied.Roles = append([]Role(nil), u.Roles...)
	if u.FieldOfStudy != nil {
		fos := *u.FieldOfStudy
		copied.FieldOfStudy = &fos
	}
	return &copied
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

type Content struct {
	ID               int64         `json:"id"`
	Title            string        `json:"title"`
	Body             string        `json:"body"`
	Summary          string        `json:"summary,omitempty"`
	Type             ContentType   `json:"type"`
	Status           ContentStatus `json:"status"`
	AuthorID         int64         `json:"authorId"`
	AuthorUsername   string        `json:"authorUsername"`
	FieldOfStudyID   *int64        `json:"kierunekId,omitempty"`
	FieldOfStudyName string        `json:"kierunekName,omitempty"`
	CategoryID       *int64        `json:"categoryId,omitempty"`
	CategoryName     string        `json:"categoryName,omitempty"`
	Tags             string        `json:"tags,omitempty"`
	ViewCount        int64         `json:"viewCount"`
	CreatedAt        string        `json:"createdAt,omitempty"`
	UpdatedAt        string        `json:"updatedAt,omitempty"`
	PublishedAt      string        `json:"publishedAt,omitempty"`
}

type ContentRequest struct {
	Title          string      `json:"title"`
	Body           string      `json:"body"`
	Summary        string      `json:"summary,omitempty"`
	Type           ContentType `json:"type"`
	Tags           string      `json:"tags,omitempty"`
	FieldOfStudyID *int64      `json:"kierunekId,omitempty"`
	CategoryID     *int64      `json:"categoryId,omitempty"`
}

func (r ContentRequest) Validate() error {
	var fields []goerrors.FieldError
	title := strings.TrimSpace(r.Title)
	switch {
	case title == "":
		fields = append(fields, fieldError("title", "title is required"))
	case utf8.RuneCountInString(r.Title) > 200:
		fields = append(fields, fieldError("title", "title must not exceed 200 characters"))
	}
	if strings.TrimSpace(r.Body) == "" {
		fields = append(fields, fieldError("body", "body is required"))
	}
	if utf8.RuneCountInString(r.Summary) > 500 {
		fields = append(fields, fieldError("summary", "summary must not exceed 500 characters"))
	}
	if !r.Type.Valid() {
		fields = append(fields, fieldError("type", "type is invalid"))
	}
	return validationError("content request is invalid", fields)
}

type Category struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"isActive"`
}

func (c Category) Validate() error {
	var fields []goerrors.FieldError
	if strings.TrimSpace(c.Name) == "" {
		fields = append(fields, fieldError("name", "name is required"))
	}
	return validationError("category is invalid", fields)
}

// FieldOfStudy is the backend "kierunek" resource.
type FieldOfStudy struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"isActive"`
}

func (f FieldOfStudy) Validate() error {
	var fields []goerrors.FieldError
	if strings.TrimSpace(f.Name) == "" {
		fields = append(fields, fieldError("name", "name is required"))
	}
	if strings.TrimSpace(f.Code) == "" {
		fields = append(fields, fieldError("code", "code is required"))
	}
	return validationError("field of study is invalid", fields)
}

type SystemStats struct {
	TotalUsers         int64 `json:"totalUsers"`
	ActiveUsers        int64 `json:"activeUsers"`
	TotalContent       int64 `json:"totalContent"`
	PublishedContent   int64 `json:"publishedContent"`
	DraftContent       int64 `json:"draftContent"`
	TotalCategories    int64 `json:"totalCategories"`
	TotalFieldsOfStudy int64 `json:"totalKieruneks"`
}

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r SignInRequest) Validate() error {
	var fields []goerrors.FieldError
	if strings.TrimSpace(r.Username) == "" {
		fields = append(fields, fieldError("username", "username is required"))
	}
	if r.Password == "" {
		fields = append(fields, fieldError("password", "password is required"))
	}
	return validationError("sign in request is invalid", fields)
}

type SignUpRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	FieldOfStudyID *int64 `json:"kierunekId,omitempty"`
}

func (r SignUpRequest) Validate() error {
	var fields []goerrors.FieldError
	username := strings.TrimSpace(r.Username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		fields = append(fields, fieldError("username", "username must be between 3 and 50 characters"))
	}
	email := strings.TrimSpace(r.Email)
	switch {
	case email == "":
		fields = append(fields, fieldError("email", "email is required"))
	case utf8.RuneCountInString(email) > 100:
		fields = append(fields, fieldError("email", "email must not exceed 100 characters"))
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			fields = append(fields, fieldError("email", "email is invalid"))
		}
	}
	if n := utf8.RuneCountInString(r.Password); n < 6 || n > 40 {
		fields = append(fields, fieldError("password", "password must be between 6 and 40 characters"))
	}
	if utf8.RuneCountInString(r.FirstName) > 100 {
		fields = append(fields, fieldError("firstName", "first name must not exceed 100 characters"))
	}
	if utf8.RuneCountInString(r.LastName) > 100 {
		fields = append(fields, fieldError("lastName", "last name must not exceed 100 characters"))
	}
	return validationError("sign up request is invalid", fields)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	var fields []goerrors.FieldError
	if r.CurrentPassword == "" {
		fields = append(fields, fieldError("currentPassword", "current password is required"))
	}
	if n := utf8.RuneCountInString(r.NewPassword); n < 6 || n > 40 {
		fields = append(fields, fieldError("newPassword", "new password must be between 6 and 40 characters"))
	}
	return validationError("change password request is invalid", fields)
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ModerationRequest struct {
	Action ModerationAction `json:"action"`
	Reason string           `json:"reason,omitempty"`
}

func (r ModerationRequest) Validate() error {
	switch r.Action {
	case ModerationApprove, ModerationReject:
		return nil
	}
	return validationError("moderation request is invalid", []goerrors.FieldError{
		fieldError("action", "action must be approve or reject"),
	})
}

type RoleUpdateRequest struct {
	Role string `json:"role"`
}

type StatusUpdateRequest struct {
	IsActive bool `json:"isActive"`
}

func fieldError(field string, message string) goerrors.FieldError {
	return goerrors.FieldError{Field: field, Message: message}
}

func validationError(message string, fields []goerrors.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return goerrors.NewValidation(message, fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput)
}
