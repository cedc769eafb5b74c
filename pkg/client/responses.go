package client

import (
	"time"
)

// Member is a person record in the membership system.
type Member struct {
	ID        int    `json:"id"`
	Active    bool   `json:"active"`
	FirstName string `json:"first_name"`
	Infix     string `json:"infix"`
	LastName  string `json:"last_name"`
	Initials  string `json:"initials"`
	SSCNumber string `json:"ssc_number"`
	AddressID int    `json:"address_id,omitempty"`
}

// Name returns the display name of the member.
func (m Member) Name() string {
	return FormatName(m.FirstName, m.Infix, m.LastName)
}

// Address is the postal address of a member.
type Address struct {
	ID       int    `json:"id,omitempty"`
	Street   string `json:"street"`
	Number   string `json:"number"`
	PostCode string `json:"post_code"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

// Membership is a membership held by a member.
type Membership struct {
	ID         int       `json:"id"`
	MemberID   int       `json:"member_id"`
	Active     bool      `json:"active"`
	Name       string    `json:"name"`
	Fee        float64   `json:"fee"`
	IssueDate  time.Time `json:"issue_date"`
	ExpiryDate time.Time `json:"expiry_date"`
	General    bool      `json:"general_membership"`
}

// MemberDetail joins a member with its address, board status and the
// free-form metadata kept by the backend.
type MemberDetail struct {
	Member
	Address     Address        `json:"address"`
	Phone       string         `json:"phone"`
	Email       string         `json:"email"`
	Birthdate   time.Time      `json:"birthdate"`
	Study       string         `json:"study"`
	Institution string         `json:"institution"`
	Generation  string         `json:"generation"`
	IsBoard     bool           `json:"is_board"`
	Meta        map[string]any `json:"meta"`
}

// Metadata keys of MemberDetail.Meta.
const (
	MetaSSCStatus       = "ssc_status"
	MetaNHBNumber       = "nhb_number"
	MetaExternalNHB     = "external_NHB"
	MetaBarCertificate  = "bar_certificate"
	MetaEHBOCertificate = "EHBO_certificate"
	MetaBHVCertificate  = "bhv_certificate"
	MetaHonoraryMember  = "honorary_member"
)

// NewPerson holds the values used to create a member and its address.
type NewPerson struct {
	FirstName      string    `json:"first_name"`
	Infix          string    `json:"infix"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Birthdate      time.Time `json:"birthdate"`
	Institution    string    `json:"institution"`
	Study          string    `json:"study"`
	AddressStreet  string    `json:"address_street"`
	AddressNumber  string    `json:"address_number"`
	AddressZip     string    `json:"address_zip"`
	AddressCity    string    `json:"address_city"`
	AddressCountry string    `json:"address_country"`
}

// PersonUpdate holds the fields to change on a member. Nil fields are left
// untouched.
type PersonUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	Infix     *string `json:"infix,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Study     *string `json:"study,omitempty"`
}

func (u PersonUpdate) empty() bool {
	return u.FirstName == nil && u.Infix == nil && u.LastName == nil &&
		u.Phone == nil && u.Email == nil && u.Study == nil
}
