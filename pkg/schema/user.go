package schema

// RoleVenueAdmin is the role carried by users who administer at least one venue.
const RoleVenueAdmin = "venue_admin"

// User is the authenticated account together with its profile completeness flags.
// ProfileComplete and PhoneVerified are computed by the server and never inferred locally.
type User struct {
	ID              int64        `json:"id"`
	FirstName       string       `json:"first_name"`
	LastName        string       `json:"last_name"`
	PhoneNumber     string       `json:"phone_number"`
	PhoneVerified   bool         `json:"phone_verified"`
	Role            string       `json:"role"`
	ProfileComplete *bool        `json:"profile_complete,omitempty"`
	SocialLinks     *SocialLinks `json:"social_links,omitempty"`
	ProfilePhotoURL *string      `json:"profile_photo_url,omitempty"`
	IDCardImageURL  *string      `json:"id_card_image_url,omitempty"`
	CreatedAt       *Time        `json:"created_at,omitempty"`
	UpdatedAt       *Time        `json:"updated_at,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u User) IsVenueAdmin() bool {
	return u.Role == RoleVenueAdmin
}

// SocialLinks holds optional profile links.
type SocialLinks struct {
	Facebook  *string `json:"facebook,omitempty"`
	Instagram *string `json:"instagram,omitempty"`
	Linkedin  *string `json:"linkedin,omitempty"`
}

// AuthResponse completes both the registration and the login flow.
// Every field is optional: a partial response only updates what it carries.
type AuthResponse struct {
	Message      *string `json:"message,omitempty"`
	User         *User   `json:"user,omitempty"`
	AccessToken  *string `json:"access_token,omitempty"`
	RefreshToken *string `json:"refresh_token,omitempty"`
}

type UserResponse struct {
	User User `json:"user"`
}
