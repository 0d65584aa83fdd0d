package updater

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Yepoleb/gogdb/internal/model"
	"github.com/Yepoleb/gogdb/internal/storage"
)

// Version is the interpretation of a free-form version string. At most
// one of Number, Doted and Date is set; GOG carries the packaging
// revision when one was attached. Issue flags strings that needed a
// guess to interpret.
type Version struct {
	GOG    string
	Number string
	Doted  string
	Date   string
	Issue  string
}

// Defined reports whether anything useful was parsed out.
func (v *Version) Defined() bool {
	return v.Number != "" || v.Doted != "" || v.Date != ""
}

func (v *Version) String() string {
	switch {
	case v.Number != "":
		return v.Number
	case v.Doted != "":
		return v.Doted
	case v.Date != "":
		return v.Date
	default:
		return ""
	}
}

var (
	// Examples: (gog-7), (gog-2a), gog-3
	gogTagRe = regexp.MustCompile(`\s*\(?gog-(\d+)\w?(\)|\s+|$)`)
	// Example: 2022-08-17
	isoDateRe = regexp.MustCompile(`(\d{4})[-_/.](\d{2})[-_/.](\d{2})`)
	// Example: 17-08-2022
	reverseDateRe = regexp.MustCompile(`(\d{2})[-_/.](\d{2})[-_/.](\d{4})`)
	// Examples: 1.2.3, 2019.03.24, 1.1.1.4.6
	dotedRe = regexp.MustCompile(`(\d+\.\d+(\.\d+)*)`)
	// Examples: 1843, v329, r78b, build 9
	numberRe = regexp.MustCompile(`\d+`)
)

// ParseVersion interprets a version string. Date-like strings win over
// dotted numbers, dotted numbers over bare numbers; a string with more
// than one bare number and no other structure is unparsable.
func ParseVersion(versionStr string) Version {
	if versionStr == "" {
		return Version{Issue: "empty"}
	}
	versionStr = strings.ToLower(versionStr)
	var version Version

	if m := gogTagRe.FindStringSubmatchIndex(versionStr); m != nil {
		version.GOG = versionStr[m[2]:m[3]]
		versionStr = versionStr[:m[0]] + versionStr[m[1]:]
		if versionStr == "" {
			version.Issue = "onlygog"
			return version
		}
	}

	if m := isoDateRe.FindStringSubmatch(versionStr); m != nil {
		version.Date = m[1] + "-" + m[2] + "-" + m[3]
		if !strings.Contains(m[0], "-") {
			version.Issue = "date"
		}
		return version
	}

	// Parses cursed mm/dd/yyyy incorrectly, but should work as long as
	// it's used consistently.
	if m := reverseDateRe.FindStringSubmatch(versionStr); m != nil {
		version.Date = m[3] + "-" + m[2] + "-" + m[1]
		version.Issue = "date"
		return version
	}

	if m := dotedRe.FindStringSubmatch(versionStr); m != nil {
		dotedStr := m[1]
		parts := strings.Split(dotedStr, ".")
		for i, part := range parts {
			n, err := strconv.Atoi(part)
			if err == nil {
				parts[i] = strconv.Itoa(n)
			}
		}
		dotedNorm := strings.Join(parts, ".")
		version.Doted = dotedNorm
		if dotedStr != dotedNorm {
			version.Issue = "doted"
		}
		return version
	}

	if numbers := numberRe.FindAllString(versionStr, -1); len(numbers) == 1 {
		version.Number = numbers[0]
		return version
	}

	if !version.Defined() {
		version.Issue = "unparsable"
	}
	return version
}

// SameVersion reports whether two interpretations plausibly describe
// the same release. A match across kinds, a dotted number against a
// bare one, is accepted but flagged as fuzzy on both sides.
func SameVersion(a, b *Version) bool {
	switch {
	case a.Doted != "" && a.Doted == b.Doted:
		return true
	case a.Date != "" && a.Date == b.Date:
		return true
	case a.Number != "" && a.Number == b.Number:
		return true
	}

	var aFuzzy, bFuzzy string
	switch {
	case a.Doted != "":
		aFuzzy = strings.ReplaceAll(a.Doted, ".", "")
	case a.Number != "":
		aFuzzy = a.Number
	default:
		return false
	}
	switch {
	case b.Doted != "":
		bFuzzy = strings.ReplaceAll(b.Doted, ".", "")
	case b.Number != "":
		bFuzzy = b.Number
	default:
		return false
	}

	if aFuzzy == bFuzzy {
		a.Issue = "fuzzy"
		b.Issue = "fuzzy"
		return true
	}
	return false
}

// versionIssue is one oddly formed version string worth reviewing.
type versionIssue struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	OS          string `json:"os"`
	Type        string `json:"type"`
	Version     string `json:"version"`
	Interpreted string `json:"interpreted"`
	Reason      string `json:"reason"`
}

// VersionsProcessor reports products whose latest build version
// disagrees with their latest installer version, plus version strings
// that could not be interpreted cleanly.
type VersionsProcessor struct {
	store      *storage.Store
	mismatches []model.Mismatch
	issues     []versionIssue
}

func NewVersionsProcessor(store *storage.Store) *VersionsProcessor {
	return &VersionsProcessor{store: store}
}

func (p *VersionsProcessor) Name() string { return "versions" }

func (p *VersionsProcessor) Process(data *ProductData) error {
	prod := data.Product
	if prod == nil {
		return nil
	}

	for _, osName := range []string{"windows", "osx"} {
		var osBuilds []*model.Build
		for _, build := range prod.Builds {
			if build.OS != osName {
				continue
			}
			if build.Version != nil && strings.Contains(strings.ToLower(*build.Version), "beta") {
				continue
			}
			osBuilds = append(osBuilds, build)
		}
		var osDls []*model.SoftwareDownload
		for i := range prod.DlInstaller {
			dl := &prod.DlInstaller[i]
			if dl.OS == osName && dl.Language.Code == "en" {
				osDls = append(osDls, dl)
			}
		}
		if len(osBuilds) == 0 || len(osDls) == 0 {
			continue
		}

		lastBuild := osBuilds[len(osBuilds)-1]
		lastDl := osDls[len(osDls)-1]
		buildVersion := ""
		if lastBuild.Version != nil {
			buildVersion = *lastBuild.Version
		}
		buildParsed := ParseVersion(buildVersion)
		dlParsed := ParseVersion(lastDl.Version)

		if buildParsed.Defined() && dlParsed.Defined() && !SameVersion(&buildParsed, &dlParsed) {
			p.mismatches = append(p.mismatches, model.Mismatch{
				ID:             prod.ID,
				Title:          prod.Title,
				OS:             osName,
				VersionBuild:   lastBuild.Version,
				VersionDl:      lastDl.Version,
				BuildPublished: lastBuild.DatePublished,
			})
		}

		for _, parsed := range []struct {
			version     string
			interpreted *Version
			kind        string
		}{
			{buildVersion, &buildParsed, "build"},
			{lastDl.Version, &dlParsed, "dl"},
		} {
			if parsed.interpreted.Issue != "" {
				p.issues = append(p.issues, versionIssue{
					ID:          prod.ID,
					Title:       prod.Title,
					OS:          osName,
					Type:        parsed.kind,
					Version:     parsed.version,
					Interpreted: parsed.interpreted.String(),
					Reason:      parsed.interpreted.Issue,
				})
			}
		}
	}
	return nil
}

func (p *VersionsProcessor) Finish() error {
	sort.SliceStable(p.mismatches, func(i, j int) bool {
		var a, b time.Time
		if p.mismatches[i].BuildPublished != nil {
			a = *p.mismatches[i].BuildPublished
		}
		if p.mismatches[j].BuildPublished != nil {
			b = *p.mismatches[j].BuildPublished
		}
		return a.After(b)
	})
	if err := p.store.SaveUser(p.mismatches, "versions.json"); err != nil {
		return err
	}
	return p.store.SaveUser(p.issues, "version_issues.json")
}
