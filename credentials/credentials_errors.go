package credentials

import "errors"

var (
	NotFoundErr      = errors.New("credential not found")
	EmptyKeyErr      = errors.New("empty credential key")
	NoPassphraseErr  = errors.New("passphrase is required")
	DecryptFailedErr = errors.New("credential store could not be decrypted")
)
