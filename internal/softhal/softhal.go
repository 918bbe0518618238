// Package softhal is an in-memory software rendition of the payment and
// secure element HALs. It backs tests and the daemon's -soft-hal mode.
package softhal

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/ldclabs/cose/iana"
	ecdh2 "github.com/ldclabs/cose/key/ecdh"
	"golang.org/x/crypto/hkdf"

	"github.com/go-ctap/halbridge/pkg/hal"
	"github.com/go-ctap/halbridge/pkg/options"
)

// Result codes reported by the software HAL.
const (
	CodeOK             int32 = 0
	CodeNotFound       int32 = 1
	CodeSessionInvalid int32 = -204
)

// COSE algorithm ES256.
const algES256 = -7

type keyID struct {
	uid  uint32
	name string
}

type session struct {
	key       *ecdsa.PrivateKey
	challenge string
}

// CommandFunc answers InvokeCommand.
type CommandFunc func(param []byte) ([]byte, error)

// HAL implements hal.Mlipay and hal.Soter in memory.
type HAL struct {
	logger  *slog.Logger
	encMode cbor.EncMode

	mu         sync.Mutex
	asks       map[uint32]*ecdsa.PrivateKey
	authKeys   map[keyID]*ecdsa.PrivateKey
	sessions   map[uint64]*session
	idLists    map[int32][]int32
	command    CommandFunc
	deviceSeed []byte
}

var (
	_ hal.Mlipay = (*HAL)(nil)
	_ hal.Soter  = (*HAL)(nil)
)

// New returns an empty HAL. deviceSeed determines the reported device id.
func New(deviceSeed []byte, opts ...options.Option) *HAL {
	oo := options.NewOptions(opts...)

	return &HAL{
		logger:     oo.Logger,
		encMode:    oo.EncMode,
		asks:       make(map[uint32]*ecdsa.PrivateKey),
		authKeys:   make(map[keyID]*ecdsa.PrivateKey),
		sessions:   make(map[uint64]*session),
		idLists:    make(map[int32][]int32),
		command:    echo,
		deviceSeed: slices.Clone(deviceSeed),
	}
}

func echo(param []byte) ([]byte, error) {
	return slices.Clone(param), nil
}

// SetIDList sets the enrolled template ids reported for bioType.
func (h *HAL) SetIDList(bioType int32, ids ...int32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.idLists[bioType] = slices.Clone(ids)
}

// SetCommandFunc replaces the InvokeCommand handler, which echoes by default.
func (h *HAL) SetCommandFunc(fn CommandFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.command = fn
}

// KeyCount reports how many keys uid owns, ASK included.
func (h *HAL) KeyCount(uid uint32) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	if _, ok := h.asks[uid]; ok {
		n++
	}
	for id := range h.authKeys {
		if id.uid == uid {
			n++
		}
	}
	return n
}

func (h *HAL) InvokeCommand(_ context.Context, param []byte) ([]byte, error) {
	h.mu.Lock()
	fn := h.command
	h.mu.Unlock()

	return fn(param)
}

func (h *HAL) IfaaGetIDList(_ context.Context, bioType int32) ([]int32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return slices.Clone(h.idLists[bioType]), nil
}

func (h *HAL) GenerateAskKeyPair(_ context.Context, uid uint32) (int32, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.asks[uid] = key
	h.logger.Debug("ASK generated", "uid", uid)

	return CodeOK, nil
}

func (h *HAL) ExportAskPublicKey(_ context.Context, uid uint32) (*hal.ExportResult, error) {
	h.mu.Lock()
	key, ok := h.asks[uid]
	h.mu.Unlock()

	if !ok {
		return &hal.ExportResult{Code: CodeNotFound}, nil
	}
	return h.exportPublic(key)
}

func (h *HAL) HasAskAlready(_ context.Context, uid uint32) (int32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.asks[uid]; !ok {
		return CodeNotFound, nil
	}
	return CodeOK, nil
}

// GenerateAuthKeyPair requires the ASK of uid, which certifies auth keys on
// real hardware.
func (h *HAL) GenerateAuthKeyPair(_ context.Context, uid uint32, name string) (int32, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.asks[uid]; !ok {
		return CodeNotFound, nil
	}

	h.authKeys[keyID{uid, name}] = key
	h.logger.Debug("auth key generated", "uid", uid, "name", name)

	return CodeOK, nil
}

func (h *HAL) ExportAuthKeyPublicKey(_ context.Context, uid uint32, name string) (*hal.ExportResult, error) {
	h.mu.Lock()
	key, ok := h.authKeys[keyID{uid, name}]
	h.mu.Unlock()

	if !ok {
		return &hal.ExportResult{Code: CodeNotFound}, nil
	}
	return h.exportPublic(key)
}

func (h *HAL) RemoveAuthKey(_ context.Context, uid uint32, name string) (int32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := keyID{uid, name}
	if _, ok := h.authKeys[id]; !ok {
		return CodeNotFound, nil
	}
	delete(h.authKeys, id)

	return CodeOK, nil
}

func (h *HAL) HasAuthKey(_ context.Context, uid uint32, name string) (int32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.authKeys[keyID{uid, name}]; !ok {
		return CodeNotFound, nil
	}
	return CodeOK, nil
}

func (h *HAL) RemoveAllUIDKey(_ context.Context, uid uint32) (int32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.asks, uid)
	for id := range h.authKeys {
		if id.uid == uid {
			delete(h.authKeys, id)
		}
	}
	h.logger.Debug("all keys removed", "uid", uid)

	return CodeOK, nil
}

func (h *HAL) InitSign(_ context.Context, uid uint32, name, challenge string) (*hal.SessionResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key, ok := h.authKeys[keyID{uid, name}]
	if !ok {
		return &hal.SessionResult{Code: CodeNotFound}, nil
	}

	var handle uint64
	for handle == 0 || h.sessions[handle] != nil {
		b := make([]byte, 8)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		handle = binary.BigEndian.Uint64(b)
	}

	h.sessions[handle] = &session{
		key:       key,
		challenge: challenge,
	}

	return &hal.SessionResult{Code: CodeOK, Session: handle}, nil
}

// FinishSign signs SHA-256 of the session challenge and ends the session.
func (h *HAL) FinishSign(_ context.Context, handle uint64) (*hal.ExportResult, error) {
	h.mu.Lock()
	sess, ok := h.sessions[handle]
	delete(h.sessions, handle)
	h.mu.Unlock()

	if !ok {
		return &hal.ExportResult{Code: CodeSessionInvalid}, nil
	}

	digest := sha256.Sum256([]byte(sess.challenge))
	sig, err := ecdsa.SignASN1(rand.Reader, sess.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("cannot sign challenge: %w", err)
	}

	return &hal.ExportResult{
		Code:   CodeOK,
		Data:   sig,
		Length: int32(len(sig)),
	}, nil
}

func (h *HAL) GetDeviceID(context.Context) (*hal.ExportResult, error) {
	id := make([]byte, 16)
	if _, err := io.ReadFull(
		hkdf.New(sha256.New, h.deviceSeed, nil, []byte("soter device id")),
		id,
	); err != nil {
		return nil, fmt.Errorf("deriving device id using HKDF failed: %w", err)
	}

	return &hal.ExportResult{
		Code:   CodeOK,
		Data:   id,
		Length: int32(len(id)),
	}, nil
}

// exportPublic encodes the public half of key as a CBOR COSE_Key.
func (h *HAL) exportPublic(key *ecdsa.PrivateKey) (*hal.ExportResult, error) {
	pub, err := key.PublicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("cannot convert public key to ECDH: %w", err)
	}

	coseKey, err := ecdh2.KeyFromPublic(pub)
	if err != nil {
		return nil, fmt.Errorf("cannot convert public key to COSE_Key: %w", err)
	}
	if err := coseKey.Set(iana.KeyParameterAlg, algES256); err != nil {
		return nil, fmt.Errorf("cannot set alg parameter for COSE_Key: %w", err)
	}
	delete(coseKey, iana.KeyParameterKid)

	b, err := h.encMode.Marshal(coseKey)
	if err != nil {
		return nil, err
	}

	return &hal.ExportResult{
		Code:   CodeOK,
		Data:   b,
		Length: int32(len(b)),
	}, nil
}
