package deb

import (
	"fmt"
	"sort"
	"strings"
)

// Control is the package metadata record written to DEBIAN/control.
// It carries the fields this tool sets itself plus a pass-through map for
// any other fields a control template may declare.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#binary-package-control-files-debian-control
type Control struct {
	// Package is the package name. Lower case letters, digits, plus, minus
	// and periods; at least two characters; starts alphanumeric.
	Package string

	// Version is the package version, format [epoch:]upstream[-revision].
	Version string

	// Architecture is the target architecture ("amd64", "arm64", "all", ...).
	Architecture string

	// Maintainer is "Name <email@address>".
	Maintainer string

	// Section classifies the package ("video", "utils", ...).
	Section string

	// Priority is the package importance, usually "optional".
	Priority string

	// Homepage is the upstream project URL.
	Homepage string

	// Depends lists the package relationships, one entry per package,
	// each optionally carrying a version constraint ("libc6 (>= 2.17)").
	Depends []string

	// InstalledSizeKB is the estimated unpacked size in kilobytes.
	// Rendered only when positive.
	InstalledSizeKB int64

	// Description holds the synopsis on the first line and the extended
	// description on the following lines.
	Description string

	// ExtraFields preserves template-provided fields this tool does not
	// interpret (Recommends, Conflicts, custom fields, ...).
	ExtraFields map[string]string
}

// Substitute replaces the literal %VERSION% and %ARCH% placeholder tokens
// in text with the provided values.
func Substitute(text, version, arch string) string {
	text = strings.ReplaceAll(text, TokenVersion, version)
	return strings.ReplaceAll(text, TokenArch, arch)
}

// ArtifactName returns the output filename for a built package.
// Format: {name}-{version}_{arch}.deb
func ArtifactName(name, version, arch string) string {
	return fmt.Sprintf("%s-%s_%s.deb", name, version, arch)
}

// Set updates a field in the record by its control-file name.
// Unknown fields go to ExtraFields.
func (c *Control) Set(key, value string) {
	switch ControlField(key) {
	case FieldPackage:
		c.Package = value
	case FieldVersion:
		c.Version = value
	case FieldArchitecture:
		c.Architecture = value
	case FieldMaintainer:
		c.Maintainer = value
	case FieldSection:
		c.Section = value
	case FieldPriority:
		c.Priority = value
	case FieldHomepage:
		c.Homepage = value
	case FieldDepends:
		c.Depends = splitList(value)
	case FieldInstalledSize:
		// computed at render time, never taken from input
	case FieldDescription:
		c.Description = value
	default:
		if c.ExtraFields == nil {
			c.ExtraFields = make(map[string]string)
		}
		c.ExtraFields[key] = value
	}
}

// MergeDepends folds a comma-separated dependency declaration into Depends,
// skipping entries already present.
func (c *Control) MergeDepends(decl string) {
	for _, dep := range splitList(decl) {
		found := false
		for _, existing := range c.Depends {
			if existing == dep {
				found = true
				break
			}
		}
		if !found {
			c.Depends = append(c.Depends, dep)
		}
	}
}

// Render generates the control file text for the record.
// Fields render in canonical order, the Description always last with its
// extended lines indented per Debian policy.
func (c *Control) Render() string {
	var b strings.Builder

	writeField := func(field ControlField, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", field, value)
		}
	}

	writeField(FieldPackage, c.Package)
	writeField(FieldVersion, c.Version)
	writeField(FieldArchitecture, c.Architecture)
	writeField(FieldMaintainer, c.Maintainer)
	if c.InstalledSizeKB > 0 {
		writeField(FieldInstalledSize, fmt.Sprintf("%d", c.InstalledSizeKB))
	}
	writeField(FieldSection, c.Section)
	writeField(FieldPriority, c.Priority)
	writeField(FieldHomepage, c.Homepage)
	if len(c.Depends) > 0 {
		writeField(FieldDepends, strings.Join(c.Depends, ", "))
	}

	// Extra fields in sorted order for deterministic output.
	var extraKeys []string
	for k := range c.ExtraFields {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		writeField(ControlField(k), c.ExtraFields[k])
	}

	if c.Description != "" {
		lines := strings.Split(c.Description, "\n")
		writeField(FieldDescription, lines[0])
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) == "" {
				fmt.Fprintf(&b, " .\n")
			} else if strings.HasPrefix(line, " ") {
				fmt.Fprintf(&b, "%s\n", line)
			} else {
				fmt.Fprintf(&b, " %s\n", line)
			}
		}
	}

	return b.String()
}

// ParseControl parses control file text into a record.
// Continuation lines (leading space or tab) fold into the value of the
// preceding field; unknown fields land in ExtraFields.
func ParseControl(content string) (*Control, error) {
	c := &Control{ExtraFields: make(map[string]string)}

	var currentKey string
	var currentValue strings.Builder

	flush := func() {
		if currentKey != "" {
			c.Set(currentKey, strings.TrimSpace(currentValue.String()))
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if currentKey == "" {
				return nil, fmt.Errorf("continuation line without a field: %q", line)
			}
			currentValue.WriteString("\n" + line)
		} else if strings.Contains(line, ":") {
			flush()
			parts := strings.SplitN(line, ":", 2)
			currentKey = parts[0]
			currentValue.Reset()
			currentValue.WriteString(strings.TrimSpace(parts[1]))
		} else if strings.TrimSpace(line) != "" {
			return nil, fmt.Errorf("malformed control line: %q", line)
		}
	}
	flush()

	if c.Package == "" {
		return nil, fmt.Errorf("control stanza has no %s field", FieldPackage)
	}
	return c, nil
}

// splitList splits a comma-separated field value, trimming whitespace.
// It returns nil for an empty input.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var res []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
