package session

import (
	"encoding/json"
	"fmt"
)

// Listener is a callback function that receives events during the packaging run.
type Listener func(fmt.Stringer)

func jsonString(v interface{}) string {
	b, _ := json.Marshal(map[string]interface{}{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventWorkdirCreated is emitted when the session's package root is allocated.
type EventWorkdirCreated struct {
	Path string `json:"path,omitempty"`
}

func (e EventWorkdirCreated) String() string { return jsonString(e) }

// EventTreeMirrored is emitted when the staging tree is mirrored into the package root.
type EventTreeMirrored struct {
	Source string `json:"source,omitempty"`
	Dest   string `json:"dest,omitempty"`
}

func (e EventTreeMirrored) String() string { return jsonString(e) }

// EventDesktopEntryWritten is emitted when the desktop entry is written.
type EventDesktopEntryWritten struct {
	Path string `json:"path,omitempty"`
}

func (e EventDesktopEntryWritten) String() string { return jsonString(e) }

// EventIconInstalled is emitted when the icon is copied into the icon cache
// location, or skipped because the source is absent or the destination is
// already identical.
type EventIconInstalled struct {
	Source  string `json:"source,omitempty"`
	Dest    string `json:"dest,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

func (e EventIconInstalled) String() string { return jsonString(e) }

// EventControlWritten is emitted when the control file lands in the package root.
type EventControlWritten struct {
	Path         string `json:"path,omitempty"`
	Package      string `json:"package,omitempty"`
	Version      string `json:"version,omitempty"`
	Architecture string `json:"architecture,omitempty"`
	FromTemplate bool   `json:"from_template,omitempty"`
}

func (e EventControlWritten) String() string { return jsonString(e) }

// EventHookInstalled is emitted when a maintainer script is installed,
// generated, or skipped.
type EventHookInstalled struct {
	Name      string `json:"name,omitempty"`
	Path      string `json:"path,omitempty"`
	Generated bool   `json:"generated,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
}

func (e EventHookInstalled) String() string { return jsonString(e) }

// EventDependencyScan is emitted after the best-effort dependency scan,
// with the discovered declaration or the reason it was skipped.
type EventDependencyScan struct {
	Binary  string `json:"binary,omitempty"`
	Depends string `json:"depends,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (e EventDependencyScan) String() string { return jsonString(e) }

// EventArtifactBuilt is emitted when the archiver produces the package file.
type EventArtifactBuilt struct {
	Path string `json:"path,omitempty"`
	Size int64  `json:"size,omitempty"`
}

func (e EventArtifactBuilt) String() string { return jsonString(e) }

// EventArtifactVerified is emitted when the built package reads back with
// the expected metadata.
type EventArtifactVerified struct {
	Path         string `json:"path,omitempty"`
	Package      string `json:"package,omitempty"`
	Version      string `json:"version,omitempty"`
	Architecture string `json:"architecture,omitempty"`
}

func (e EventArtifactVerified) String() string { return jsonString(e) }

// EventWorkdirRemoved is emitted when the package root is deleted after a
// successful run, naming the removal strategy that worked.
type EventWorkdirRemoved struct {
	Path     string `json:"path,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

func (e EventWorkdirRemoved) String() string { return jsonString(e) }

// EventWorkdirPreserved is emitted when the package root is kept on disk
// after a failed run.
type EventWorkdirPreserved struct {
	Path string `json:"path,omitempty"`
}

func (e EventWorkdirPreserved) String() string { return jsonString(e) }

// EventCleanupWarning is emitted when a removal strategy fails; the run's
// outcome is unaffected.
type EventCleanupWarning struct {
	Path   string `json:"path,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (e EventCleanupWarning) String() string { return jsonString(e) }
