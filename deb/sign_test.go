package deb

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
)

func TestChecksumLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.deb")
	content := []byte("deb bytes\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	line, err := ChecksumLine(path)
	if err != nil {
		t.Fatalf("ChecksumLine failed: %v", err)
	}

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:]) + "  artifact.deb\n"
	if line != want {
		t.Errorf("expected %q, got %q", want, line)
	}
}

func TestClearSign(t *testing.T) {
	entity, err := openpgp.NewEntity("Test User", "test", "test@example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	var keyBuf bytes.Buffer
	w, _ := armor.Encode(&keyBuf, openpgp.PrivateKeyType, nil)
	entity.SerializePrivate(w, nil)
	w.Close()

	signed, err := ClearSign([]byte("checksum line\n"), keyBuf.String())
	if err != nil {
		t.Fatalf("ClearSign failed: %v", err)
	}
	if !strings.Contains(string(signed), "BEGIN PGP SIGNED MESSAGE") {
		t.Errorf("output is not a clearsigned message:\n%s", signed)
	}

	block, _ := clearsign.Decode(signed)
	if block == nil {
		t.Fatal("clearsign.Decode returned no block")
	}
	if !strings.Contains(string(block.Bytes), "checksum line") {
		t.Errorf("signed message lost the input: %q", block.Bytes)
	}
}

func TestClearSignBadKey(t *testing.T) {
	if _, err := ClearSign([]byte("data"), "not a key"); err == nil {
		t.Error("expected error for malformed key")
	}
}
