// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"errors"
	"time"
)

const (
	DefaultPollInterval   = 2 * time.Second
	// DefaultMaxFailedPolls подряд неудачных проверок высоты блока до отказа
	DefaultMaxFailedPolls = 30
	// DefaultMaxWait около 150 блоков действия blockhash с запасом
	DefaultMaxWait        = 2 * time.Minute
	// MaxRequiredSignatures пользователь плюс не более одного дополнительного подписанта
	MaxRequiredSignatures = 2
)

var (
	ErrInvalidSignature   = errors.New("invalid transaction signature")
	ErrInvalidBlockhash   = errors.New("invalid blockhash")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrMissingSigner      = errors.New("required signer missing")
	ErrTooManySigners     = errors.New("too many required signatures")
)

type Config struct {
	// PollInterval период опроса статуса подписи
	PollInterval time.Duration
	// MinConfirmations число подтверждений, достаточное без статуса confirmed
	MinConfirmations uint8
	// MaxFailedPolls подряд неудачных опросов, после которых ожидание завершается
	MaxFailedPolls int
	// MaxWait верхняя граница ожидания подтверждения
	MaxWait time.Duration
}

type Status struct {
	Signature     string
	Status        string
	Confirmations uint64
	Slot          uint64
	Error         string
	Timestamp     time.Time
}
