package api

import (
	openapiTypes "github.com/oapi-codegen/runtime/types"
)

// revive:disable:var-naming // keep field names aligned with the backend schemas

// DirectusMember is a row of the Members collection.
type DirectusMember struct {
	Id           int                `json:"id"`
	FirstName    string             `json:"first_name"`
	Infix        *string            `json:"infix"`
	LastName     string             `json:"last_name"`
	Active       *bool              `json:"active,omitempty"`
	DmsId        *string            `json:"dms_id"`
	NhbId        *string            `json:"nhb_id"`
	PhoneNumber  *string            `json:"phone_number"`
	Email        *string            `json:"email"`
	BirthDate    *openapiTypes.Date `json:"birth_date"`
	Institution  *string            `json:"institution"`
	StudyProgram *string            `json:"study_program"`
	Address      *int               `json:"address"`
	JoinDate     *openapiTypes.Date `json:"join_date"`
}

// DirectusAddress is a row of the MemberAddresses collection.
type DirectusAddress struct {
	Id       int    `json:"id"`
	Street   string `json:"street"`
	Number   string `json:"number"`
	PostCode string `json:"post_code"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

// DirectusPinHash is a row of the PinHashes collection.
type DirectusPinHash struct {
	Id     int    `json:"id,omitempty"`
	Member int    `json:"member"`
	Hash   string `json:"hash"`
}

// DirectusCommittee is a row of the Committees collection.
type DirectusCommittee struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

// DirectusCommitteeMember links a member to a committee for a period.
type DirectusCommitteeMember struct {
	Id        int                `json:"id"`
	Committee int                `json:"committee"`
	Member    int                `json:"member"`
	Start     *openapiTypes.Date `json:"start"`
	End       *openapiTypes.Date `json:"end"`
}

// DirectusMembershipType is the expanded type relation of a membership.
type DirectusMembershipType struct {
	Id      int                `json:"id"`
	Name    string             `json:"name"`
	Fee     float64            `json:"fee"`
	General bool               `json:"general"`
	Start   *openapiTypes.Date `json:"start"`
	End     *openapiTypes.Date `json:"end"`
}

// DirectusMembership is a row of the Memberships join collection.
type DirectusMembership struct {
	Id     int                    `json:"id"`
	Member int                    `json:"member"`
	Type   DirectusMembershipType `json:"type"`
}

// LassiePerson is a person as returned by person_model.
type LassiePerson struct {
	Id             int                `json:"id"`
	FirstName      string             `json:"first_name"`
	Infix          string             `json:"infix"`
	LastName       string             `json:"last_name"`
	Initials       string             `json:"initials"`
	Active         bool               `json:"active"`
	SscNumber      string             `json:"ssc_number"`
	EmailPrimary   string             `json:"email_primary"`
	PhoneHome      string             `json:"phone_home"`
	Birthdate      *openapiTypes.Date `json:"birthdate"`
	DepartmentId   string             `json:"department_id"`
	Study          string             `json:"study"`
	MemberSince    *openapiTypes.Date `json:"member_since"`
	AddressStreet  string             `json:"address_street"`
	AddressNumber  string             `json:"address_number"`
	AddressZip     string             `json:"address_zip"`
	AddressCity    string             `json:"address_city"`
	AddressCountry string             `json:"address_country"`
	Options        map[string]string  `json:"options,omitempty"`
}

// LassieOption is an entry of the person option dictionary.
type LassieOption struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// LassieMembership is a membership as returned by membership_model.
type LassieMembership struct {
	Id         int                `json:"id"`
	PersonId   int                `json:"person_id"`
	Active     bool               `json:"active"`
	Name       string             `json:"name"`
	Fee        float64            `json:"fee"`
	IssueDate  *openapiTypes.Date `json:"issue_date"`
	ExpiryDate *openapiTypes.Date `json:"expiry_date"`
	General    bool               `json:"general_membership"`
}

// LassieCommittee is a committee as returned by committee_model.
type LassieCommittee struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

// LassieCommitteeMember is a committee membership of a person.
type LassieCommitteeMember struct {
	CommitteeId int                `json:"committee_id"`
	PersonId    int                `json:"person_id"`
	EndDate     *openapiTypes.Date `json:"end_date"`
}

// LassiePinHash is the reply of get_pin_hash.
type LassiePinHash struct {
	Hash string `json:"hash"`
}

// LassieResult is the reply of mutating Lassie methods.
type LassieResult struct {
	StatusCode int    `json:"status_code"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
}

// revive:enable:var-naming
