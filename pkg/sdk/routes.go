package sdk

import "fmt"

type routeKind int

const (
	kindInvalid routeKind = iota
	kindRegister
	kindConfirmRegistration
	kindLogin
	kindConfirmLogin
	kindLogout
	kindProfile
	kindUploadPhoto
	kindUploadIDCard
	kindVenues
	kindVenue
	kindVenueEvents
	kindApprovals
	kindApproval
	kindApprovalQRCode
	kindAdminVenues
	kindAdminVenue
	kindAdminApprovals
	kindAdminPendingApprovals
	kindAdminApproval
	kindAdminApprove
	kindAdminReject
)

// Route names one API endpoint together with the path parameters it needs.
// Routes can only be built through the values and constructors below.
type Route struct {
	kind    routeKind
	id      int64
	venueID int64
}

var (
	RouteRegister            = Route{kind: kindRegister}
	RouteConfirmRegistration = Route{kind: kindConfirmRegistration}
	RouteLogin               = Route{kind: kindLogin}
	RouteConfirmLogin        = Route{kind: kindConfirmLogin}
	RouteLogout              = Route{kind: kindLogout}
	RouteProfile             = Route{kind: kindProfile}
	RouteUploadPhoto         = Route{kind: kindUploadPhoto}
	RouteUploadIDCard        = Route{kind: kindUploadIDCard}
	RouteVenues              = Route{kind: kindVenues}
	RouteApprovals           = Route{kind: kindApprovals}
	RouteAdminVenues         = Route{kind: kindAdminVenues}
)

func RouteVenue(id int64) Route          { return Route{kind: kindVenue, id: id} }
func RouteVenueEvents(id int64) Route    { return Route{kind: kindVenueEvents, id: id} }
func RouteApproval(id int64) Route       { return Route{kind: kindApproval, id: id} }
func RouteApprovalQRCode(id int64) Route { return Route{kind: kindApprovalQRCode, id: id} }
func RouteAdminVenue(id int64) Route     { return Route{kind: kindAdminVenue, id: id} }

func RouteAdminApprovals(venueID int64) Route {
	return Route{kind: kindAdminApprovals, venueID: venueID}
}

func RouteAdminPendingApprovals(venueID int64) Route {
	return Route{kind: kindAdminPendingApprovals, venueID: venueID}
}

func RouteAdminApproval(venueID, id int64) Route {
	return Route{kind: kindAdminApproval, venueID: venueID, id: id}
}

func RouteAdminApprove(venueID, id int64) Route {
	return Route{kind: kindAdminApprove, venueID: venueID, id: id}
}

func RouteAdminReject(venueID, id int64) Route {
	return Route{kind: kindAdminReject, venueID: venueID, id: id}
}

// Path maps the route to its path below the versioned API base.
// ok is false only for the zero Route.
func (r Route) Path() (path string, ok bool) {
	switch r.kind {
	case kindRegister:
		return "/auth/register", true
	case kindConfirmRegistration:
		return "/auth/confirm_registration", true
	case kindLogin:
		return "/auth/login", true
	case kindConfirmLogin:
		return "/auth/confirm_login", true
	case kindLogout:
		return "/auth/logout", true
	case kindProfile:
		return "/profile", true
	case kindUploadPhoto:
		return "/profile/upload_photo", true
	case kindUploadIDCard:
		return "/profile/upload_id_card", true
	case kindVenues:
		return "/venues", true
	case kindVenue:
		return fmt.Sprintf("/venues/%d", r.id), true
	case kindVenueEvents:
		return fmt.Sprintf("/venues/%d/events", r.id), true
	case kindApprovals:
		return "/approvals", true
	case kindApproval:
		return fmt.Sprintf("/approvals/%d", r.id), true
	case kindApprovalQRCode:
		return fmt.Sprintf("/approvals/%d/qr_code", r.id), true
	case kindAdminVenues:
		return "/admin/venues", true
	case kindAdminVenue:
		return fmt.Sprintf("/admin/venues/%d", r.id), true
	case kindAdminApprovals:
		return fmt.Sprintf("/admin/venues/%d/approvals", r.venueID), true
	case kindAdminPendingApprovals:
		return fmt.Sprintf("/admin/venues/%d/approvals/pending", r.venueID), true
	case kindAdminApproval:
		return fmt.Sprintf("/admin/venues/%d/approvals/%d", r.venueID, r.id), true
	case kindAdminApprove:
		return fmt.Sprintf("/admin/venues/%d/approvals/%d/approve", r.venueID, r.id), true
	case kindAdminReject:
		return fmt.Sprintf("/admin/venues/%d/approvals/%d/reject", r.venueID, r.id), true
	default:
		return "", false
	}
}

func (r Route) String() string {
	if p, ok := r.Path(); ok {
		return p
	}
	return "<invalid route>"
}
