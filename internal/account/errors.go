package account

import (
	"errors"

	"github.com/yolodolo42/starkacct/internal/wallet"
)

// Every failure returned by this package matches one of these with errors.Is.
var (
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrAlreadyDeployed   = errors.New("account already deployed")
	ErrSigning           = wallet.ErrSigning
	ErrNonceResolution   = errors.New("nonce resolution failed")
	ErrNetwork           = errors.New("network request failed")
	ErrUnsupportedFlavor = errors.New("unsupported account flavor")
	ErrInvalidParams     = errors.New("invalid transaction parameters")
)
