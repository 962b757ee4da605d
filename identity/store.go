package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore is a simple local-first store for ed25519 signing seeds.
//
// Layout: <dir>/<name>/root.key holds the hex seed; role-derived subkeys
// live under <dir>/<name>/roles/<role>.key. Role seeds are derived
// deterministically from the root seed, so exporting a root seed is enough
// to reconstruct every role key.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Name  string
	Roles []string
}

func DefaultKeyDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".registra", "keys"), nil
}

func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultKeyDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func checkName(name string) error {
	if name == "" {
		return errors.New("identity: name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("identity: invalid character %q in name", char)
	}
	return nil
}

// ParseSeedHex decodes a 32-byte ed25519 seed from hex, accepting an
// optional 0x prefix and surrounding whitespace.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

// DeriveRoleSeed deterministically derives a role-specific seed from a root
// seed with a domain-separated KDF.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := checkName(role); err != nil {
		return nil, err
	}
	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("registra-kms-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	sum := h.Sum(nil)
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}

func (ks *KeyStore) rootKeyPath(name string) string {
	return filepath.Join(ks.Directory, name, "root.key")
}

func (ks *KeyStore) roleKeyPath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".key")
}

func (ks *KeyStore) saveSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("identity: expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return f.Close()
}

func (ks *KeyStore) loadSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// InitializeRoot stores a root seed under name and returns its Identity.
func (ks *KeyStore) InitializeRoot(name string, seed []byte, overwrite bool) (Identity, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := ks.saveSeed(ks.rootKeyPath(name), seed, overwrite); err != nil {
		return "", err
	}
	s, err := NewEd25519Signer(seed)
	if err != nil {
		return "", err
	}
	return s.Identity(), nil
}

// DeriveRole derives, stores and returns the Identity of a role subkey.
func (ks *KeyStore) DeriveRole(name, role string, overwrite bool) (Identity, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	rootSeed, err := ks.loadSeed(ks.rootKeyPath(name))
	if err != nil {
		return "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", err
	}
	if err := ks.saveSeed(ks.roleKeyPath(name, role), roleSeed, overwrite); err != nil {
		return "", err
	}
	s, err := NewEd25519Signer(roleSeed)
	if err != nil {
		return "", err
	}
	return s.Identity(), nil
}

// Signer loads the named key (root when role is empty) as a Signer.
func (ks *KeyStore) Signer(name, role string) (Signer, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	path := ks.rootKeyPath(name)
	if role != "" {
		if err := checkName(role); err != nil {
			return nil, err
		}
		path = ks.roleKeyPath(name, role)
	}
	seed, err := ks.loadSeed(path)
	if err != nil {
		return nil, err
	}
	return NewEd25519Signer(seed)
}

// List returns the stored key names and their derived roles.
func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []KeyEntry
	for _, name := range names {
		rolesDir := filepath.Join(ks.Directory, name, "roles")
		roleEntries, rerr := os.ReadDir(rolesDir)
		var roles []string
		if rerr == nil {
			for _, re := range roleEntries {
				if re.IsDir() {
					continue
				}
				if strings.HasSuffix(re.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(re.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Name: name, Roles: roles})
	}
	return result, nil
}
