// Package model defines domain entities used by services and repositories.
package model

import "time"

// Category classifies a secret. The set is fixed and mirrored by a CHECK constraint.
type Category string

const (
	CategoryKubeconfig  Category = "kubeconfig"
	CategorySSHKey      Category = "ssh_key"
	CategoryToken       Category = "token"
	CategoryCertificate Category = "certificate"
	CategoryPassword    Category = "password"
	CategoryOther       Category = "other"
)

// Categories lists every valid category in schema order.
var Categories = []Category{
	CategoryKubeconfig, CategorySSHKey, CategoryToken,
	CategoryCertificate, CategoryPassword, CategoryOther,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Secret is a single vault entry. Content is an opaque blob protected by the database encryption.
type Secret struct {
	ID        string
	Name      string
	Category  Category
	Content   []byte  // nil in list results
	FilePath  *string // target path for materialization, may use ~/
	Notes     *string
	IsActive  bool // materialized on disk
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSecret is the caller input for adding a secret.
type NewSecret struct {
	Name     string `validate:"required,max=256"`
	Category string `validate:"required,oneof=kubeconfig ssh_key token certificate password other"`
	Content  []byte
	FilePath *string
	Notes    *string
}

// SecretUpdate carries optional changes; nil fields are left untouched.
type SecretUpdate struct {
	Name     *string
	Category *string
	Content  []byte
	FilePath *string
	Notes    *string
}

// Empty reports whether the update carries no fields.
func (u SecretUpdate) Empty() bool {
	return u.Name == nil && u.Category == nil && u.Content == nil && u.FilePath == nil && u.Notes == nil
}

// ActivePath pairs a secret ID with the file it was materialized to.
type ActivePath struct {
	ID       string
	FilePath string
}

// Status is the read-only vault state report.
type Status struct {
	Exists   bool `json:"exists"`
	Unlocked bool `json:"unlocked"`
}

// AuthRecord is the singleton row of vault_auth.
type AuthRecord struct {
	PasswordHash []byte // salt16 || argon2id32
	RecoveryHash []byte // salt16 || argon2id32
	Salt         []byte // database key derivation salt
	CreatedAt    time.Time
}

// RecoveryEnvelope is the escrow blob stored outside the encrypted database.
type RecoveryEnvelope struct {
	Salt           []byte // 16 bytes, recovery key derivation salt
	Hash           []byte // 48 bytes, verification hash of the phrase
	EncryptedDBKey []byte // nonce || ciphertext || tag of the hex database key
}

// UnlockResult is what the daemon returns for create, login and recover.
type UnlockResult struct {
	OK             bool
	Token          string
	ExpiresAt      time.Time
	RecoveryPhrase string // only set by create
}
