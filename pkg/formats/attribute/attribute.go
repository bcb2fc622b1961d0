/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package attribute is a plain attribute credential and proof format, "aries/attributes@v1".
//
// Credentials are name to value maps sealed by the SHA-256 digest of their canonical JSON. Proof requests
// select credential values with JSONPath expressions evaluated against the stored credential document.
package attribute

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
)

const (
	// Format is the attachment format identifier.
	Format = "aries/attributes@v1"
	// Key is the format key inputs and format data are addressed by.
	Key = "aries/attributes"

	mediaType = "application/json"
)

var logger = log.New("aries-framework/formats/attribute")

var (
	// ErrInvalidPayload is returned for attachments that are not attribute payloads.
	ErrInvalidPayload = errors.New("invalid attribute payload")
	// ErrNoInput is returned when an operation needs an input that was not given.
	ErrNoInput = errors.New("attribute input required")
	// ErrNoMatchingCredential is returned when no stored credential satisfies a proof request.
	ErrNoMatchingCredential = errors.New("no credential satisfies the request")
)

// CredentialInput is the input of credential proposals, offers and requests.
type CredentialInput struct {
	Attributes map[string]string `json:"attributes"`
}

// ProofInput is the input of proof proposals and requests.
type ProofInput struct {
	// Requested maps an attribute name to a JSONPath into the credential, e.g. "$.attributes.name".
	Requested map[string]string `json:"requested"`
}

// PresentationInput selects the credential to present. Without it the first matching credential is used.
type PresentationInput struct {
	CredentialID string `json:"credential_id"`
}

// Credential is an issued attribute credential.
type Credential struct {
	ID         string            `json:"id"`
	Issuer     string            `json:"issuer,omitempty"`
	Attributes map[string]string `json:"attributes"`
	Digest     string            `json:"digest"`
}

// Verify checks the digest of the credential.
func (c *Credential) Verify() error {
	digest, err := Digest(c.Attributes)
	if err != nil {
		return err
	}

	if digest != c.Digest {
		return fmt.Errorf("%w: digest of credential %s does not match its attributes", ErrInvalidPayload, c.ID)
	}

	return nil
}

func (c *Credential) document() (interface{}, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	var doc interface{}

	return doc, json.Unmarshal(raw, &doc)
}

// Presentation reveals requested values of a credential.
type Presentation struct {
	Revealed   map[string]string `json:"revealed"`
	Credential *Credential       `json:"credential"`
}

type attributesPayload struct {
	Attributes map[string]string `json:"attributes"`
}

type requestPayload struct {
	Requested map[string]string `json:"requested"`
}

// Digest returns the hex SHA-256 digest of the canonical JSON of the attributes.
func Digest(attrs map[string]string) (string, error) {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}

	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:]), nil
}

func decodeInput(input, result interface{}) error {
	if input == nil {
		return ErrNoInput
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode attribute input: %w", err)
	}

	return nil
}

func payload(att *decorator.AttachmentV2) ([]byte, error) {
	if att == nil {
		return nil, fmt.Errorf("%w: missing attachment", ErrInvalidPayload)
	}

	raw, err := att.Data.Fetch()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}

	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: not json", ErrInvalidPayload)
	}

	return raw, nil
}

// stringMap reads an object of strings at path.
func stringMap(att *decorator.AttachmentV2, path string) (map[string]string, error) {
	raw, err := payload(att)
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(raw, path)
	if !result.IsObject() {
		return nil, fmt.Errorf("%w: %s is not an object", ErrInvalidPayload, path)
	}

	values := map[string]string{}

	result.ForEach(func(key, value gjson.Result) bool {
		values[key.String()] = value.String()

		return true
	})

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidPayload, path)
	}

	return values, nil
}

func attributesOf(att *decorator.AttachmentV2) (map[string]string, error) {
	return stringMap(att, "attributes")
}

func sameStrings(a, b *decorator.AttachmentV2, path string) (bool, error) {
	left, err := stringMap(a, path)
	if err != nil {
		return false, err
	}

	right, err := stringMap(b, path)
	if err != nil {
		return false, err
	}

	return maps.Equal(left, right), nil
}

func output(v interface{}, preview []exchange.PreviewAttribute) *exchange.FormatOutput {
	return &exchange.FormatOutput{
		Format:    Format,
		MediaType: mediaType,
		Data:      decorator.AttachmentData{JSON: v},
		Preview:   preview,
	}
}

func previewOf(attrs map[string]string) []exchange.PreviewAttribute {
	names := maps.Keys(attrs)
	slices.Sort(names)

	preview := make([]exchange.PreviewAttribute, len(names))
	for i, name := range names {
		preview[i] = exchange.PreviewAttribute{Name: name, Value: attrs[name]}
	}

	return preview
}
