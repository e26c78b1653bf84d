// Package convert maps domain types to and from protobuf well-known messages used on the wire.
package convert

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/model"
)

// Field names shared by the daemon and the CLI.
const (
	FieldExists    = "exists"
	FieldUnlocked  = "unlocked"
	FieldOK        = "ok"
	FieldToken     = "token"
	FieldExpiresAt = "expires_at"
	FieldPhrase    = "recovery_phrase"

	FieldID        = "id"
	FieldName      = "name"
	FieldCategory  = "category"
	FieldContent   = "content"
	FieldFilePath  = "file_path"
	FieldNotes     = "notes"
	FieldIsActive  = "is_active"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// --- helpers ---

func str(v string) *structpb.Value { return structpb.NewStringValue(v) }

func ts(t time.Time) *structpb.Value {
	return structpb.NewStringValue(t.UTC().Format(time.RFC3339Nano))
}

func getString(s *structpb.Struct, key string) (string, bool, error) {
	v, ok := s.GetFields()[key]
	if !ok || v == nil {
		return "", false, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return "", false, nil
	}
	sv, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr {
		return "", false, fmt.Errorf("%w: field %q must be a string", errs.ErrValidation, key)
	}
	return sv.StringValue, true, nil
}

func getTime(s *structpb.Struct, key string) (time.Time, error) {
	raw, ok, err := getString(s, key)
	if err != nil || !ok {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: field %q: %v", errs.ErrValidation, key, err)
	}
	return t, nil
}

func optString(s *structpb.Struct, key string) (*string, error) {
	v, ok, err := getString(s, key)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

func optContent(s *structpb.Struct) ([]byte, error) {
	raw, ok, err := getString(s, FieldContent)
	if err != nil || !ok {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: content is not base64: %v", errs.ErrValidation, err)
	}
	return b, nil
}

// --- Status ---

// ToProtoStatus encodes vault status.
func ToProtoStatus(st model.Status) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldExists:   structpb.NewBoolValue(st.Exists),
		FieldUnlocked: structpb.NewBoolValue(st.Unlocked),
	}}
}

// FromProtoStatus decodes vault status; missing fields read as false.
func FromProtoStatus(s *structpb.Struct) model.Status {
	f := s.GetFields()
	return model.Status{
		Exists:   f[FieldExists].GetBoolValue(),
		Unlocked: f[FieldUnlocked].GetBoolValue(),
	}
}

// --- Unlock results ---

// ToProtoUnlockResult encodes the outcome of create, login or recover.
func ToProtoUnlockResult(r model.UnlockResult) *structpb.Struct {
	out := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldOK: structpb.NewBoolValue(r.OK),
	}}
	if r.Token != "" {
		out.Fields[FieldToken] = str(r.Token)
		out.Fields[FieldExpiresAt] = ts(r.ExpiresAt)
	}
	if r.RecoveryPhrase != "" {
		out.Fields[FieldPhrase] = str(r.RecoveryPhrase)
	}
	return out
}

// FromProtoUnlockResult decodes an unlock outcome.
func FromProtoUnlockResult(s *structpb.Struct) (model.UnlockResult, error) {
	r := model.UnlockResult{OK: s.GetFields()[FieldOK].GetBoolValue()}
	var err error
	if r.Token, _, err = getString(s, FieldToken); err != nil {
		return model.UnlockResult{}, err
	}
	if r.ExpiresAt, err = getTime(s, FieldExpiresAt); err != nil {
		return model.UnlockResult{}, err
	}
	if r.RecoveryPhrase, _, err = getString(s, FieldPhrase); err != nil {
		return model.UnlockResult{}, err
	}
	return r, nil
}

// --- Secrets (daemon -> client) ---

// ToProtoSecret encodes secret metadata. Content is never sent.
func ToProtoSecret(sec model.Secret) *structpb.Struct {
	f := map[string]*structpb.Value{
		FieldID:        str(sec.ID),
		FieldName:      str(sec.Name),
		FieldCategory:  str(string(sec.Category)),
		FieldIsActive:  structpb.NewBoolValue(sec.IsActive),
		FieldCreatedAt: ts(sec.CreatedAt),
		FieldUpdatedAt: ts(sec.UpdatedAt),
	}
	if sec.FilePath != nil {
		f[FieldFilePath] = str(*sec.FilePath)
	}
	if sec.Notes != nil {
		f[FieldNotes] = str(*sec.Notes)
	}
	return &structpb.Struct{Fields: f}
}

// ToProtoSecrets encodes a list of secrets.
func ToProtoSecrets(secs []model.Secret) *structpb.ListValue {
	return &structpb.ListValue{Values: lo.Map(secs, func(sec model.Secret, _ int) *structpb.Value {
		return structpb.NewStructValue(ToProtoSecret(sec))
	})}
}

// FromProtoSecret decodes secret metadata.
func FromProtoSecret(s *structpb.Struct) (model.Secret, error) {
	if s == nil {
		return model.Secret{}, fmt.Errorf("%w: nil secret", errs.ErrValidation)
	}
	var (
		sec model.Secret
		cat string
		err error
	)
	if sec.ID, _, err = getString(s, FieldID); err != nil {
		return model.Secret{}, err
	}
	if sec.Name, _, err = getString(s, FieldName); err != nil {
		return model.Secret{}, err
	}
	if cat, _, err = getString(s, FieldCategory); err != nil {
		return model.Secret{}, err
	}
	sec.Category = model.Category(cat)
	if sec.FilePath, err = optString(s, FieldFilePath); err != nil {
		return model.Secret{}, err
	}
	if sec.Notes, err = optString(s, FieldNotes); err != nil {
		return model.Secret{}, err
	}
	sec.IsActive = s.GetFields()[FieldIsActive].GetBoolValue()
	if sec.CreatedAt, err = getTime(s, FieldCreatedAt); err != nil {
		return model.Secret{}, err
	}
	if sec.UpdatedAt, err = getTime(s, FieldUpdatedAt); err != nil {
		return model.Secret{}, err
	}
	return sec, nil
}

// FromProtoSecrets decodes a list of secrets.
func FromProtoSecrets(l *structpb.ListValue) ([]model.Secret, error) {
	out := make([]model.Secret, 0, len(l.GetValues()))
	for i, v := range l.GetValues() {
		sec, err := FromProtoSecret(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("secret[%d]: %w", i, err)
		}
		out = append(out, sec)
	}
	return out, nil
}

// --- Secrets (client -> daemon) ---

// ToProtoNewSecret encodes an add request; content travels base64-encoded.
func ToProtoNewSecret(in model.NewSecret) *structpb.Struct {
	f := map[string]*structpb.Value{
		FieldName:     str(in.Name),
		FieldCategory: str(in.Category),
		FieldContent:  str(base64.StdEncoding.EncodeToString(in.Content)),
	}
	if in.FilePath != nil {
		f[FieldFilePath] = str(*in.FilePath)
	}
	if in.Notes != nil {
		f[FieldNotes] = str(*in.Notes)
	}
	return &structpb.Struct{Fields: f}
}

// FromProtoNewSecret decodes an add request. Field validation is left to the service.
func FromProtoNewSecret(s *structpb.Struct) (model.NewSecret, error) {
	var (
		in  model.NewSecret
		err error
	)
	if in.Name, _, err = getString(s, FieldName); err != nil {
		return model.NewSecret{}, err
	}
	if in.Category, _, err = getString(s, FieldCategory); err != nil {
		return model.NewSecret{}, err
	}
	if in.Content, err = optContent(s); err != nil {
		return model.NewSecret{}, err
	}
	if in.FilePath, err = optString(s, FieldFilePath); err != nil {
		return model.NewSecret{}, err
	}
	if in.Notes, err = optString(s, FieldNotes); err != nil {
		return model.NewSecret{}, err
	}
	return in, nil
}

// ToProtoSecretUpdate encodes an update request; only non-nil fields are sent.
func ToProtoSecretUpdate(id string, upd model.SecretUpdate) *structpb.Struct {
	f := map[string]*structpb.Value{FieldID: str(id)}
	if upd.Name != nil {
		f[FieldName] = str(*upd.Name)
	}
	if upd.Category != nil {
		f[FieldCategory] = str(*upd.Category)
	}
	if upd.Content != nil {
		f[FieldContent] = str(base64.StdEncoding.EncodeToString(upd.Content))
	}
	if upd.FilePath != nil {
		f[FieldFilePath] = str(*upd.FilePath)
	}
	if upd.Notes != nil {
		f[FieldNotes] = str(*upd.Notes)
	}
	return &structpb.Struct{Fields: f}
}

// FromProtoSecretUpdate decodes an update request into the target id and the changes.
func FromProtoSecretUpdate(s *structpb.Struct) (string, model.SecretUpdate, error) {
	id, ok, err := getString(s, FieldID)
	if err != nil {
		return "", model.SecretUpdate{}, err
	}
	if !ok || id == "" {
		return "", model.SecretUpdate{}, fmt.Errorf("%w: id is required", errs.ErrValidation)
	}

	var upd model.SecretUpdate
	if upd.Name, err = optString(s, FieldName); err != nil {
		return "", model.SecretUpdate{}, err
	}
	if upd.Category, err = optString(s, FieldCategory); err != nil {
		return "", model.SecretUpdate{}, err
	}
	if upd.Content, err = optContent(s); err != nil {
		return "", model.SecretUpdate{}, err
	}
	if upd.FilePath, err = optString(s, FieldFilePath); err != nil {
		return "", model.SecretUpdate{}, err
	}
	if upd.Notes, err = optString(s, FieldNotes); err != nil {
		return "", model.SecretUpdate{}, err
	}
	return id, upd, nil
}
