// Package metadata inspects data items' metadata against the ISO-Core elements of the
// VT GIS Metadata Standard and writes the findings to a text report.
package metadata

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// Item is one data item to inspect.
type Item struct {
	Name     string
	Fields   []gdb.Field // nil when the item has no fields (rasters, bare XML pairs)
	Metadata *gdb.Metadata
}

// Severity classifies a finding.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityAdvice
	SeverityError
)

// Finding is one line of an item's report entry.
type Finding struct {
	Severity Severity
	Text     string
}

// Verdict is the closing line of an item's report entry.
type Verdict string

const (
	VerdictFails         Verdict = "DOESN'T APPEAR TO MEET STANDARD: Item's metadata doesn't appear to meet the ISO-Core metadata requirements of the VT GIS Metadata Standard."
	VerdictFieldsAdvised Verdict = "CONSIDER MAKING SURE FIELD DESCRIPTIONS ARE CAPTURED IN METADATA. Item's metadata appears to meet the ISO-Core metadata requirements of the VT GIS Metadata Standard. However, it appears to have incomplete field descriptions (which aren't required but are very recommended)."
	VerdictMeetsStandard Verdict = "SUPER! Item's metadata appears to meet the ISO-Core metadata requirements of the VT GIS Metadata Standard!"
)

// Result is the inspection outcome of one item.
type Result struct {
	Item     string
	Findings []Finding
	Verdict  Verdict
}

// Errors returns the number of error findings.
func (r *Result) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

type inspection struct {
	res Result
}

func (in *inspection) add(sev Severity, format string, args ...any) {
	in.res.Findings = append(in.res.Findings, Finding{Severity: sev, Text: fmt.Sprintf(format, args...)})
}

func (in *inspection) fail(msg string) { in.add(SeverityError, "ERROR: %s", msg) }

// Inspect checks an item's ISO 19139 and FGDC-CSDGM documents. It fails only when a
// document can't be parsed.
func Inspect(item Item) (*Result, error) {
	md := item.Metadata
	if md == nil {
		md = &gdb.Metadata{}
	}
	iso, err := parseRoot(md.ISO)
	if err != nil {
		return nil, fmt.Errorf("parse ISO metadata of %s: %w", item.Name, err)
	}
	csdgm, err := parseRoot(md.CSDGM)
	if err != nil {
		return nil, fmt.Errorf("parse FGDC metadata of %s: %w", item.Name, err)
	}

	in := &inspection{res: Result{Item: item.Name}}
	const ident = "gmd:identificationInfo/gmd:MD_DataIdentification/"

	if text(csdgm, "idinfo/citation/citeinfo/title", nil) == "" {
		in.fail("Doesn't have required title.")
	}

	in.checkDates(findPath(iso, ident+"gmd:citation/gmd:CI_Citation/gmd:date", isoNamespaces))

	if text(csdgm, "idinfo/descript/abstract", nil) == "" {
		in.fail("Doesn't have required abstract.")
	}
	if text(iso, ident+"gmd:language/gmd:LanguageCode", isoNamespaces) == "" {
		in.fail("Doesn't have dataset language (3-character, such as eng for English).")
	}

	in.checkLocation(iso, ident+"gmd:extent/gmd:EX_Extent/gmd:geographicElement/")

	if text(iso, ident+"gmd:characterSet/gmd:MD_CharacterSetCode", isoNamespaces) == "" {
		in.fail("Doesn't have a dataset characterset.")
	}

	contacts := findPath(iso, "gmd:contact/gmd:CI_ResponsibleParty", isoNamespaces)
	if len(contacts) == 0 ||
		text(contacts[0], "gmd:individualName/gco:CharacterString", isoNamespaces) == "" &&
			text(contacts[0], "gmd:organisationName/gco:CharacterString", isoNamespaces) == "" &&
			text(contacts[0], "gmd:positionName/gco:CharacterString", isoNamespaces) == "" {
		in.fail("Doesn't have point-of-contanct info.")
	}

	if text(csdgm, "metainfo/metd", nil) == "" {
		in.fail("Doesn't have metadata date.")
	}

	topic := false
	for _, el := range findPath(iso, ident+"gmd:topicCategory/gmd:MD_TopicCategoryCode", isoNamespaces) {
		if strings.TrimSpace(el.Text()) != "" {
			topic = true
		}
	}
	if !topic {
		in.fail("Doesn't have topic categories.")
	}

	if text(iso, "gmd:referenceSystemInfo/gmd:MD_ReferenceSystem/gmd:referenceSystemIdentifier/gmd:RS_Identifier/gmd:code/gco:CharacterString", isoNamespaces) == "" {
		in.fail("Doesn't have reference-system info.")
	}

	if lang := text(iso, "gmd:language/gmd:LanguageCode", isoNamespaces); lang == "" {
		in.fail("Doesn't have metadata language.")
	} else if !strings.Contains(lang, ";") {
		in.add(SeverityAdvice, "Found metadata language '%s'. Best practice for metadata language is 3-letter language code followed by a ';', followed by 3-letter country code (e.g., English in USA is 'eng; USA').", lang)
	}

	if text(iso, "gmd:characterSet/gmd:MD_CharacterSetCode", isoNamespaces) == "" {
		in.fail("Doesn't have metadata characterset.")
	}

	incomplete := in.checkFields(csdgm, item.Fields)

	switch {
	case in.res.Errors() > 0:
		in.res.Verdict = VerdictFails
	case incomplete:
		in.res.Verdict = VerdictFieldsAdvised
	default:
		in.res.Verdict = VerdictMeetsStandard
	}
	return &in.res, nil
}

func (in *inspection) checkDates(dates []*etree.Element) {
	var creation, publication, revision bool
	for _, d := range dates {
		when := text(d, "gmd:CI_Date/gmd:date/gco:Date", isoNamespaces)
		if when == "" {
			when = text(d, "gmd:CI_Date/gmd:date/gco:DateTime", isoNamespaces)
		}
		if when == "" {
			continue
		}
		switch strings.ToLower(text(d, "gmd:CI_Date/gmd:dateType/gmd:CI_DateTypeCode", isoNamespaces)) {
		case "creation":
			creation = true
		case "publication":
			publication = true
		case "revision":
			revision = true
		}
	}
	if !creation && !publication && !revision {
		in.fail("No dataset dates found.")
	}
	if !creation || !revision {
		in.add(SeverityAdvice, "Best practice for dataset dates is to at least include a creation date and a revision date.")
	}
}

func (in *inspection) checkLocation(iso *etree.Element, base string) {
	boxes := findPath(iso, base+"gmd:EX_GeographicBoundingBox", isoNamespaces)
	if len(boxes) > 0 {
		box := boxes[0]
		for _, side := range []string{"gmd:westBoundLongitude", "gmd:eastBoundLongitude", "gmd:southBoundLatitude", "gmd:northBoundLatitude"} {
			if text(box, side+"/gco:Decimal", isoNamespaces) == "" {
				in.fail("Doesn't have complete geographic bounding coordinates.")
				return
			}
		}
		return
	}

	desc := base + "gmd:EX_GeographicDescription/gmd:geographicIdentifier/"
	code := findPath(iso, desc+"gmd:MD_Identifier/gmd:code/gco:CharacterString", isoNamespaces)
	if len(code) == 0 {
		code = findPath(iso, desc+"gmd:RS_Identifier/gmd:code/gco:CharacterString", isoNamespaces)
	}
	if len(code) == 0 || strings.TrimSpace(code[0].Text()) == "" {
		in.fail("Doesn't have geographic bounding coordinates nor a geographic identifier.")
		return
	}
	in.add(SeverityAdvice, "Didn't find geographic bounding coordinates. However, metadata does appear to have a geographic description (which meets the geographic-location requirement); consider adding geographic bounding coordinates.")
}

// checkFields reports which fields have a CSDGM attribute definition. It returns true when
// any description is missing.
func (in *inspection) checkFields(csdgm *etree.Element, fields []gdb.Field) bool {
	var listed []gdb.Field
	for _, f := range fields {
		if f.IsOID() || strings.EqualFold(f.Name, "shape") {
			continue
		}
		listed = append(listed, f)
	}
	if len(listed) == 0 {
		return false
	}

	described := make(map[string]bool)
	for _, attr := range findPath(csdgm, "eainfo/detailed/attr", nil) {
		label := text(attr, "attrlabl", nil)
		if label != "" && text(attr, "attrdef", nil) != "" {
			described[strings.ToLower(label)] = true
		}
	}

	incomplete := false
	for _, f := range listed {
		if described[strings.ToLower(f.Name)] {
			in.add(SeverityInfo, "Found field description for field %s.", f.Name)
			continue
		}
		in.add(SeverityAdvice, "DIDN'T FIND field description for field %s.", f.Name)
		incomplete = true
	}
	if !incomplete {
		return false
	}

	in.add(SeverityAdvice, "Field descriptions aren't required but are very recommended.")
	in.add(SeverityAdvice, "Found incomplete field-descriptions in export's field-description section (CSDGM eainfo); that doesen't mean fields aren't described somewhere else in the metadata.")
	in.add(SeverityAdvice, "Helpful brief field descriptions can be entered into the 'abstract'.")
	in.add(SeverityAdvice, "For convenience, here is the item's field list, which can be copied as a starter for entering field descriptions in the abstract.")

	var starter strings.Builder
	starter.WriteString("FIELD DESCRIPTIONS---------------\n")
	for _, f := range listed {
		alias := f.Alias
		if alias == "" {
			alias = f.Name
		}
		starter.WriteString(f.Name + " -" + alias + "\n")
	}
	starter.WriteString("---------------------------------")
	in.add(SeverityInfo, "%s", starter.String())
	return true
}
