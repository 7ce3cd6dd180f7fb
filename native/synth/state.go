package synth

import (
	"bytes"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"synthengine/storage"
)

// PositionState is the persistence boundary the engine mutates positions
// through. GetPosition returns nil for users that have never deposited.
type PositionState interface {
	GetPosition(addr common.Address) (*Position, error)
	PutPosition(pos *Position) error
}

var positionPrefix = []byte("synth/position/")

// storedCollateral is one (token, amount) pair in canonical token order.
type storedCollateral struct {
	Token  common.Address
	Amount *big.Int
}

type storedPosition struct {
	Address    common.Address
	Collateral []storedCollateral
	Debt       *big.Int
}

// Store persists positions as RLP records in a key-value database. It is the
// only writer of the synth/position keyspace.
type Store struct {
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func positionKey(addr common.Address) []byte {
	return append(append([]byte{}, positionPrefix...), addr.Bytes()...)
}

func (s *Store) GetPosition(addr common.Address) (*Position, error) {
	raw, err := s.db.Get(positionKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedPosition
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, err
	}
	pos := NewPosition(stored.Address)
	for _, entry := range stored.Collateral {
		if entry.Amount != nil {
			pos.Collateral[entry.Token] = new(big.Int).Set(entry.Amount)
		}
	}
	if stored.Debt != nil {
		pos.Debt = new(big.Int).Set(stored.Debt)
	}
	return pos, nil
}

func (s *Store) PutPosition(pos *Position) error {
	if pos == nil {
		return errors.New("synth: nil position")
	}
	pos.EnsureDefaults()
	stored := storedPosition{
		Address:    pos.Address,
		Collateral: make([]storedCollateral, 0, len(pos.Collateral)),
		Debt:       pos.Debt,
	}
	for token, amount := range pos.Collateral {
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		stored.Collateral = append(stored.Collateral, storedCollateral{Token: token, Amount: amount})
	}
	// Deterministic encoding regardless of map iteration order.
	sort.Slice(stored.Collateral, func(i, j int) bool {
		return bytes.Compare(stored.Collateral[i].Token.Bytes(), stored.Collateral[j].Token.Bytes()) < 0
	})
	raw, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return err
	}
	return s.db.Put(positionKey(pos.Address), raw)
}
