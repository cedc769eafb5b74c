package client

import (
	"strconv"
	"strings"
	"time"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

// FormatName renders a display name. The infix, a name particle such as
// "van" or "de", goes between first and last name when present.
func FormatName(first, infix, last string) string {
	if infix != "" {
		return first + " " + infix + " " + last
	}
	return first + " " + last
}

// InstitutionTable maps institution codes to display names.
type InstitutionTable map[string]string

// UnknownInstitution is the display name for codes missing from the table.
const UnknownInstitution = "Unknown"

// DefaultInstitutions returns the institution table of the association.
func DefaultInstitutions() InstitutionTable {
	return InstitutionTable{
		"fontys": "Fontys Hogeschool",
		"tue":    "Eindhoven University of Technology",
		"other":  "Other SSCE Recognised Organisation",
	}
}

// Lookup returns the display name for code, or UnknownInstitution.
func (t InstitutionTable) Lookup(code string) string {
	if name, ok := t[code]; ok {
		return name
	}
	return UnknownInstitution
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// emptyMeta returns the metadata bag with every known key present.
func emptyMeta() map[string]any {
	return map[string]any{
		MetaSSCStatus:       nil,
		MetaNHBNumber:       nil,
		MetaExternalNHB:     nil,
		MetaBarCertificate:  nil,
		MetaEHBOCertificate: nil,
		MetaBHVCertificate:  nil,
		MetaHonoraryMember:  nil,
	}
}

func generation(joined time.Time) string {
	if joined.IsZero() {
		return ""
	}
	return strconv.Itoa(joined.Year())
}

// Directus

func mapDirectusMember(raw api.DirectusMember) Member {
	return Member{
		ID: raw.Id,
		// Directus has no active flag; rows without it count as active.
		Active:    raw.Active == nil || *raw.Active,
		FirstName: raw.FirstName,
		Infix:     deref(raw.Infix),
		LastName:  raw.LastName,
		SSCNumber: deref(raw.DmsId),
		AddressID: deref(raw.Address),
	}
}

func mapDirectusAddress(raw api.DirectusAddress) Address {
	return Address{
		ID:       raw.Id,
		Street:   raw.Street,
		Number:   raw.Number,
		PostCode: raw.PostCode,
		City:     raw.City,
		Country:  raw.Country,
	}
}

func mapDirectusMembership(raw api.DirectusMembership, today time.Time) Membership {
	expiry := fromDate(raw.Type.End)
	return Membership{
		ID:         raw.Id,
		MemberID:   raw.Member,
		Active:     !expiry.IsZero() && onOrAfter(expiry, today),
		Name:       raw.Type.Name,
		Fee:        raw.Type.Fee,
		IssueDate:  fromDate(raw.Type.Start),
		ExpiryDate: expiry,
		General:    raw.Type.General,
	}
}

func mapDirectusDetail(raw api.DirectusMember, address api.DirectusAddress, institutions InstitutionTable) MemberDetail {
	meta := emptyMeta()
	if raw.NhbId != nil {
		meta[MetaNHBNumber] = *raw.NhbId
	}

	return MemberDetail{
		Member:      mapDirectusMember(raw),
		Address:     mapDirectusAddress(address),
		Phone:       deref(raw.PhoneNumber),
		Email:       deref(raw.Email),
		Birthdate:   fromDate(raw.BirthDate),
		Study:       deref(raw.StudyProgram),
		Institution: institutions.Lookup(deref(raw.Institution)),
		Generation:  generation(fromDate(raw.JoinDate)),
		Meta:        meta,
	}
}

// Lassie

func mapLassiePerson(raw api.LassiePerson) Member {
	return Member{
		ID:        raw.Id,
		Active:    raw.Active,
		FirstName: raw.FirstName,
		Infix:     raw.Infix,
		LastName:  raw.LastName,
		Initials:  raw.Initials,
		SSCNumber: raw.SscNumber,
	}
}

func mapLassieMembership(raw api.LassieMembership) Membership {
	return Membership{
		ID:         raw.Id,
		MemberID:   raw.PersonId,
		Active:     raw.Active,
		Name:       raw.Name,
		Fee:        raw.Fee,
		IssueDate:  fromDate(raw.IssueDate),
		ExpiryDate: fromDate(raw.ExpiryDate),
		General:    raw.General,
	}
}

// lassieOptionKeys maps option names of the Lassie option dictionary to
// metadata keys.
var lassieOptionKeys = map[string]string{
	"ssc status":       MetaSSCStatus,
	"nhb number":       MetaNHBNumber,
	"external nhb":     MetaExternalNHB,
	"bar certificate":  MetaBarCertificate,
	"ehbo certificate": MetaEHBOCertificate,
	"bhv certificate":  MetaBHVCertificate,
	"honorary member":  MetaHonoraryMember,
}

// mapLassieDetail builds a MemberDetail. options is the option dictionary
// used to name the option values stored on the person; values for options
// without a known metadata key are kept under the option name.
func mapLassieDetail(raw api.LassiePerson, options []api.LassieOption, institutions InstitutionTable) MemberDetail {
	names := make(map[string]string, len(options))
	for _, o := range options {
		names[o.Id] = o.Name
	}

	meta := emptyMeta()
	for id, value := range raw.Options {
		name, ok := names[id]
		if !ok {
			continue
		}
		key, known := lassieOptionKeys[strings.ToLower(strings.TrimSpace(name))]
		if !known {
			key = name
		}
		meta[key] = value
	}

	return MemberDetail{
		Member: mapLassiePerson(raw),
		Address: Address{
			Street:   raw.AddressStreet,
			Number:   raw.AddressNumber,
			PostCode: raw.AddressZip,
			City:     raw.AddressCity,
			Country:  raw.AddressCountry,
		},
		Phone:       raw.PhoneHome,
		Email:       raw.EmailPrimary,
		Birthdate:   fromDate(raw.Birthdate),
		Study:       raw.Study,
		Institution: institutions.Lookup(raw.DepartmentId),
		Generation:  generation(fromDate(raw.MemberSince)),
		Meta:        meta,
	}
}
