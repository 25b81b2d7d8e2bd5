package deb

// Placeholder tokens replaced literally in control templates.
const (
	TokenVersion = "%VERSION%"
	TokenArch    = "%ARCH%"
)

// ControlField represents a standard field in a Debian control file.
type ControlField string

const (
	FieldPackage       ControlField = "Package"
	FieldVersion       ControlField = "Version"
	FieldArchitecture  ControlField = "Architecture"
	FieldMaintainer    ControlField = "Maintainer"
	FieldSection       ControlField = "Section"
	FieldPriority      ControlField = "Priority"
	FieldHomepage      ControlField = "Homepage"
	FieldDepends       ControlField = "Depends"
	FieldInstalledSize ControlField = "Installed-Size"
	FieldDescription   ControlField = "Description"
)

// ControlFile represents a standard file found in the control archive
// (the DEBIAN directory of an unpacked package root).
type ControlFile string

const (
	FileControl   ControlFile = "control"
	FileMd5sums   ControlFile = "md5sums"
	FileConffiles ControlFile = "conffiles"
	FilePreinst   ControlFile = "preinst"
	FilePostinst  ControlFile = "postinst"
	FilePrerm     ControlFile = "prerm"
	FilePostrm    ControlFile = "postrm"
)

// PackageFile represents a standard member of the .deb archive (ar format).
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgControlTarGz PackageFile = "control.tar.gz"
	PkgDataTarGz    PackageFile = "data.tar.gz"
)

// maintainerScripts are the DEBIAN files that must be executable in the
// control archive.
var maintainerScripts = map[ControlFile]bool{
	FilePreinst:  true,
	FilePostinst: true,
	FilePrerm:    true,
	FilePostrm:   true,
}
