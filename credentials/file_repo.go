package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 16

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var _ Repo = (*FileRepo)(nil)

// FileRepo stores all credentials as a single encrypted JSON document.
// Tokens are bearer secrets, so the file is sealed with a key derived from
// a passphrase rather than written in the clear. Every operation re-reads
// the file: other processes (the dashboard itself, a second CLI invocation)
// may have written newer tokens since this handle was opened.
type FileRepo struct {
	path       string
	passphrase []byte
	lock       sync.Mutex
}

// NewFileRepo creates a file-backed credential store at path. The parent
// directory is created if missing.
func NewFileRepo(path, passphrase string) (*FileRepo, error) {
	if passphrase == "" {
		return nil, NoPassphraseErr
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileRepo] MkdirAll")
	}
	return &FileRepo{path: path, passphrase: []byte(passphrase)}, nil
}

func (fr *FileRepo) Get(key string) (string, error) {
	if key == "" {
		return "", EmptyKeyErr
	}

	fr.lock.Lock()
	defer fr.lock.Unlock()

	doc, err := fr.load()
	if err != nil {
		return "", err
	}
	value, ok := doc[key]
	if !ok {
		return "", NotFoundErr
	}
	return value, nil
}

func (fr *FileRepo) Set(key, value string) error {
	if key == "" {
		return EmptyKeyErr
	}

	fr.lock.Lock()
	defer fr.lock.Unlock()

	doc, err := fr.load()
	if err != nil {
		return err
	}
	doc[key] = value
	return fr.save(doc)
}

// Delete removes the given keys. Absent keys are not an error, which keeps
// teardown idempotent.
func (fr *FileRepo) Delete(keys ...string) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	doc, err := fr.load()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(doc, key)
	}
	return fr.save(doc)
}

func (fr *FileRepo) Clear() error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	return fr.save(map[string]string{})
}

// load reads and decrypts the document. A missing file is an empty store.
func (fr *FileRepo) load() (map[string]string, error) {
	raw, err := os.ReadFile(fr.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo.load] ReadFile")
	}

	if len(raw) < saltLength+chacha20poly1305.NonceSizeX {
		return nil, DecryptFailedErr
	}

	salt := raw[:saltLength]
	nonce := raw[saltLength : saltLength+chacha20poly1305.NonceSizeX]
	ciphertext := raw[saltLength+chacha20poly1305.NonceSizeX:]

	aead, err := fr.aead(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(DecryptFailedErr, err.Error())
	}

	doc := map[string]string{}
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, errors.Wrap(DecryptFailedErr, err.Error())
	}
	return doc, nil
}

// save encrypts and atomically replaces the document on disk.
func (fr *FileRepo) save(doc map[string]string) error {
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "[FileRepo.save] Marshal")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return errors.Wrap(err, "[FileRepo.save] rand salt")
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "[FileRepo.save] rand nonce")
	}

	aead, err := fr.aead(salt)
	if err != nil {
		return err
	}

	payload := append(append(salt, nonce...), aead.Seal(nil, nonce, plaintext, nil)...)

	tmp := fr.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return errors.Wrap(err, "[FileRepo.save] WriteFile")
	}
	if err := os.Rename(tmp, fr.path); err != nil {
		return errors.Wrap(err, "[FileRepo.save] Rename")
	}
	return nil
}

func (fr *FileRepo) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(fr.passphrase, salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo.aead] scrypt")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo.aead] chacha20poly1305")
	}
	return aead, nil
}
