package dtls

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/sansio/rtc/transport"
)

// Endpoint is a sans-I/O DTLS 1.2 association: handle_read/poll_write/
// handle_timeout/poll_timeout/poll_event drive the handshake and, once
// complete, application-data records (spec §4.4, §4.8). It owns exactly
// one HandshakeState and record-layer epoch set per peer connection
// (DESIGN.md Open Question 1).
type Endpoint struct {
	cfg Config
	hs  HandshakeState

	localRandom, peerRandom [32]byte
	localECDH                *ecdh.PrivateKey
	peerECDHPub               []byte
	peerCertDER               []byte
	cookie                    []byte

	transcript []byte

	epoch0     *EpochState
	epoch1     *EpochState // write direction, epoch 1
	epoch1Read *EpochState // read direction, epoch 1

	masterSecret []byte
	srtpKeys     SRTPKeyingMaterial

	recordWriteIV [4]byte
	recordReadIV  [4]byte

	appData [][]byte

	writes  []transport.Raw
	events  []Event
	closed  bool
	done    bool

	flightSentAt      int64
	flightPending     bool
	retransmitTimeout int64 // nanoseconds, doubles on each timeout
	pendingFlight     [][]byte
}

// NewEndpoint constructs an Endpoint in its initial flight for the given
// role. A client immediately has a ClientHello queued for PollWrite; a
// server waits for one.
func NewEndpoint(cfg Config) (*Endpoint, error) {
	cfg = cfg.withDefaults()
	e := &Endpoint{
		cfg:               cfg,
		epoch0:            NewEpochState(0, cfg.ReplayWindow),
		retransmitTimeout: int64(cfg.InitialRetransmitTimeout),
	}
	if _, err := rand.Read(e.localRandom[:]); err != nil {
		return nil, err
	}
	if cfg.Role == RoleClient {
		if err := e.sendClientHello(0, nil); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Endpoint) queueHandshakeRecord(now int64, msgType HandshakeType, body []byte) []byte {
	msg := EncodeHandshakeMessage(msgType, e.hs.SeqNo, body)
	e.hs.SeqNo++
	e.transcript = append(e.transcript, msg...)
	rec := EncodeRecord(Record{Type: ContentTypeHandshake, Version: [2]byte{254, 253}, Epoch: 0, SeqNo: e.epoch0.NextWriteSeq(), Body: msg})
	e.pendingFlight = append(e.pendingFlight, rec)
	return rec
}

func (e *Endpoint) flushFlight(now int64) {
	for _, rec := range e.pendingFlight {
		e.writes = append(e.writes, transport.New(now, transport.Tuple{Protocol: transport.ProtocolUDP}, rec))
	}
	e.flightSentAt = now
	e.flightPending = true
}

func (e *Endpoint) startFlight(now int64) {
	e.pendingFlight = nil
	e.flightPending = false
	e.retransmitTimeout = int64(e.cfg.InitialRetransmitTimeout)
}

func (e *Endpoint) sendClientHello(now int64, cookie []byte) error {
	e.startFlight(now)
	e.hs.Role = RoleClient
	ch := ClientHello{
		Random:        e.localRandom,
		Cookie:        cookie,
		CipherSuites:  []CipherSuiteID{TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256},
		NamedCurves:   []NamedCurve{NamedCurveP256},
		SRTPProfiles:  e.cfg.SRTPProfiles,
		UseExtendedMS: e.cfg.ExtendedMasterSecret,
	}
	e.queueHandshakeRecord(now, HandshakeClientHello, EncodeClientHello(ch))
	e.flushFlight(now)
	return nil
}

// HandleRead processes an inbound datagram addressed to this DTLS
// association (spec §4.4 "Flight 0".."Flight 6").
func (e *Endpoint) HandleRead(now int64, raw []byte) error {
	if e.closed {
		return nil
	}
	records, err := DecodeRecords(raw)
	if err != nil {
		return fmt.Errorf("dtls: %w", err)
	}
	for _, rec := range records {
		switch rec.Type {
		case ContentTypeHandshake:
			if err := e.handleHandshakeRecord(now, rec); err != nil {
				e.fail(err)
				return err
			}
		case ContentTypeChangeCipherSpec:
			// epoch bump is implicit once both Finished messages are
			// exchanged; nothing further to do on receipt alone.
		case ContentTypeApplicationData:
			if e.epoch1Read == nil {
				continue
			}
			aad := applicationDataAAD(rec)
			plaintext, err := e.epoch1Read.OpenApplicationData(e.recordReadIV, rec.SeqNo, rec.Body, aad)
			if err != nil {
				continue
			}
			e.appData = append(e.appData, plaintext)
		}
	}
	return nil
}

func (e *Endpoint) handleHandshakeRecord(now int64, rec Record) error {
	hm, err := DecodeHandshakeMessage(rec.Body)
	if err != nil {
		return err
	}
	switch hm.Header.Type {
	case HandshakeClientHello:
		return e.onClientHello(now, hm)
	case HandshakeHelloVerifyRequest:
		return e.onHelloVerifyRequest(now, hm)
	case HandshakeServerHello:
		e.transcript = append(e.transcript, rec.Body...)
		return e.onServerHello(hm)
	case HandshakeCertificate:
		e.transcript = append(e.transcript, rec.Body...)
		return e.onCertificate(hm)
	case HandshakeServerKeyExchange:
		e.transcript = append(e.transcript, rec.Body...)
		return e.onServerKeyExchange(hm)
	case HandshakeServerHelloDone:
		e.transcript = append(e.transcript, rec.Body...)
		return e.onServerHelloDone(now)
	case HandshakeClientKeyExchange:
		e.transcript = append(e.transcript, rec.Body...)
		return e.onClientKeyExchange(now, hm)
	case HandshakeFinished:
		return e.onFinished(now, hm)
	}
	return nil
}

// --- Server side ---

func (e *Endpoint) onClientHello(now int64, hm *HandshakeMessage) error {
	ch, err := DecodeClientHello(hm.Body)
	if err != nil {
		return err
	}
	if len(ch.Cookie) == 0 {
		cookie := make([]byte, 16)
		if _, err := rand.Read(cookie); err != nil {
			return err
		}
		e.cookie = cookie
		e.startFlight(now)
		e.queueHandshakeRecord(now, HandshakeHelloVerifyRequest, EncodeHelloVerifyRequest(HelloVerifyRequest{Cookie: cookie}))
		e.flushFlight(now)
		e.transcript = nil // RFC 6347 §4.2.1: HelloVerifyRequest excluded from the Finished hash
		return nil
	}
	e.peerRandom = ch.Random
	e.transcript = append(e.transcript, EncodeHandshakeMessage(HandshakeClientHello, hm.Header.MessageSeq, hm.Body)...)
	return e.sendServerFlight(now, ch)
}

func (e *Endpoint) sendServerFlight(now int64, ch *ClientHello) error {
	e.hs.Role = RoleServer
	e.startFlight(now)

	var err error
	e.localECDH, err = curveP256().GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	srtp := SRTPProtectionProfile(0)
	for _, want := range e.cfg.SRTPProfiles {
		for _, got := range ch.SRTPProfiles {
			if want == got {
				srtp = want
				break
			}
		}
		if srtp != 0 {
			break
		}
	}

	sh := ServerHello{
		Random:        e.localRandom,
		CipherSuite:   TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		UseSRTP:       srtp,
		HasSRTP:       srtp != 0,
		UseExtendedMS: ch.UseExtendedMS && e.cfg.ExtendedMasterSecret,
	}
	e.hs.SRTPProfile = srtp
	e.hs.ExtendedMasterSecret = sh.UseExtendedMS
	e.queueHandshakeRecord(now, HandshakeServerHello, EncodeServerHello(sh))
	e.queueHandshakeRecord(now, HandshakeCertificate, EncodeCertificateMessage(e.cfg.Certificate.DER))

	ske, err := EncodeServerKeyExchange(NamedCurveP256, e.localECDH.PublicKey(), e.cfg.Certificate.PrivateKey, e.peerRandom, e.localRandom)
	if err != nil {
		return err
	}
	e.queueHandshakeRecord(now, HandshakeServerKeyExchange, ske)
	e.queueHandshakeRecord(now, HandshakeServerHelloDone, nil)
	e.flushFlight(now)
	return nil
}

func (e *Endpoint) onClientKeyExchange(now int64, hm *HandshakeMessage) error {
	pub, err := DecodeClientKeyExchange(hm.Body)
	if err != nil {
		return err
	}
	e.peerECDHPub = pub
	return e.deriveMasterSecret()
}

// --- Client side ---

func (e *Endpoint) onHelloVerifyRequest(now int64, hm *HandshakeMessage) error {
	hvr, err := DecodeHelloVerifyRequest(hm.Body)
	if err != nil {
		return err
	}
	e.transcript = nil
	return e.sendClientHello(now, hvr.Cookie)
}

func (e *Endpoint) onServerHello(hm *HandshakeMessage) error {
	sh, err := DecodeServerHello(hm.Body)
	if err != nil {
		return err
	}
	e.peerRandom = sh.Random
	e.hs.SRTPProfile = sh.UseSRTP
	e.hs.ExtendedMasterSecret = sh.UseExtendedMS
	return nil
}

func (e *Endpoint) onCertificate(hm *HandshakeMessage) error {
	der, err := DecodeCertificateMessage(hm.Body)
	if err != nil {
		return err
	}
	e.peerCertDER = der
	return nil
}

func (e *Endpoint) onServerKeyExchange(hm *HandshakeMessage) error {
	dske, err := DecodeServerKeyExchange(hm.Body)
	if err != nil {
		return err
	}
	if e.peerCertDER == nil {
		return fmt.Errorf("dtls: ServerKeyExchange before Certificate")
	}
	clientRandom, serverRandom := e.clientServerRandoms()
	if err := VerifyServerKeyExchangeSignature(e.peerCertDER, dske, clientRandom, serverRandom); err != nil {
		return err
	}
	e.peerECDHPub = dske.PublicKey
	return nil
}

func (e *Endpoint) onServerHelloDone(now int64) error {
	if e.cfg.PeerFingerprint != "" {
		ok, err := VerifyFingerprint(e.peerCertDER, e.cfg.PeerFingerprintAlgorithm, e.cfg.PeerFingerprint)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("dtls: peer certificate fingerprint mismatch")
		}
	}

	e.startFlight(now)
	var err error
	e.localECDH, err = curveP256().GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	e.queueHandshakeRecord(now, HandshakeClientKeyExchange, EncodeClientKeyExchange(e.localECDH.PublicKey()))

	if err := e.deriveMasterSecret(); err != nil {
		return err
	}

	clientFinished := e.sendChangeCipherSpecAndFinished(now, LabelClientFinished)
	_ = clientFinished
	e.flushFlight(now)
	return nil
}

func (e *Endpoint) clientServerRandoms() (client, server [32]byte) {
	if e.hs.Role == RoleServer {
		return e.peerRandom, e.localRandom
	}
	return e.localRandom, e.peerRandom
}

func (e *Endpoint) deriveMasterSecret() error {
	if e.localECDH == nil || e.peerECDHPub == nil {
		return nil
	}
	peerPub, err := curveP256().NewPublicKey(e.peerECDHPub)
	if err != nil {
		return fmt.Errorf("dtls: invalid peer ECDHE public key: %w", err)
	}
	shared, err := e.localECDH.ECDH(peerPub)
	if err != nil {
		return err
	}
	clientRandom, serverRandom := e.clientServerRandoms()

	var sessionHash []byte
	if e.hs.ExtendedMasterSecret {
		sum := sha256.Sum256(e.transcript)
		sessionHash = sum[:]
	}
	e.masterSecret = MasterSecret(shared, clientRandom, serverRandom, e.hs.ExtendedMasterSecret, sessionHash)
	e.srtpKeys = ExportSRTPKeyingMaterial(e.masterSecret, clientRandom, serverRandom)
	e.epoch1 = NewEpochState(1, e.cfg.ReplayWindow)

	km := DeriveKeyingMaterial(e.masterSecret, clientRandom, serverRandom)
	var writeKey, readKey []byte
	if e.hs.Role == RoleClient {
		writeKey, readKey = km.ClientWriteKey[:], km.ServerWriteKey[:]
		e.recordWriteIV, e.recordReadIV = km.ClientWriteIV, km.ServerWriteIV
	} else {
		writeKey, readKey = km.ServerWriteKey[:], km.ClientWriteKey[:]
		e.recordWriteIV, e.recordReadIV = km.ServerWriteIV, km.ClientWriteIV
	}
	if err := e.epoch1.SetAEADKey(writeKey); err != nil {
		return err
	}
	e.epoch1Read = NewEpochState(1, e.cfg.ReplayWindow)
	if err := e.epoch1Read.SetAEADKey(readKey); err != nil {
		return err
	}
	return nil
}

func (e *Endpoint) sendChangeCipherSpecAndFinished(now int64, label string) []byte {
	ccs := EncodeRecord(Record{Type: ContentTypeChangeCipherSpec, Version: [2]byte{254, 253}, Epoch: 0, SeqNo: e.epoch0.NextWriteSeq(), Body: []byte{1}})
	e.pendingFlight = append(e.pendingFlight, ccs)

	sum := sha256.Sum256(e.transcript)
	verifyData := VerifyData(e.masterSecret, label, sum[:])
	body := EncodeFinished(Finished{VerifyData: verifyData})
	e.queueHandshakeRecord(now, HandshakeFinished, body)
	return verifyData
}

func (e *Endpoint) onFinished(now int64, hm *HandshakeMessage) error {
	f := DecodeFinished(hm.Body)

	var wantLabel string
	if e.hs.Role == RoleServer {
		wantLabel = LabelClientFinished
	} else {
		wantLabel = LabelServerFinished
	}
	sum := sha256.Sum256(e.transcript)
	want := VerifyData(e.masterSecret, wantLabel, sum[:])
	if !hmacEqual(want, f.VerifyData) {
		return fmt.Errorf("dtls: Finished verify_data mismatch")
	}
	e.transcript = append(e.transcript, EncodeHandshakeMessage(HandshakeFinished, hm.Header.MessageSeq, hm.Body)...)

	if e.hs.Role == RoleServer {
		e.startFlight(now)
		e.sendChangeCipherSpecAndFinished(now, LabelServerFinished)
		e.flushFlight(now)
	}
	e.completeHandshake()
	return nil
}

func hmacEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

func (e *Endpoint) completeHandshake() {
	e.done = true
	e.events = append(e.events, Event{
		Kind:            EventHandshakeComplete,
		SRTPProfile:     e.hs.SRTPProfile,
		SRTPKeys:        e.srtpKeys,
		PeerCertificate: e.peerCertDER,
	})
}

func (e *Endpoint) fail(err error) {
	e.done = true
	e.events = append(e.events, Event{Kind: EventHandshakeFailed, Err: err})
}

// HandleTimeout retransmits the current flight with exponential backoff
// if the peer has not advanced the handshake (spec §4.4 "Flight
// retransmission").
func (e *Endpoint) HandleTimeout(now int64) {
	if e.closed || e.done || !e.flightPending {
		return
	}
	if now-e.flightSentAt < e.retransmitTimeout {
		return
	}
	for _, rec := range e.pendingFlight {
		e.writes = append(e.writes, transport.New(now, transport.Tuple{Protocol: transport.ProtocolUDP}, rec))
	}
	e.flightSentAt = now
	e.retransmitTimeout *= 2
	if e.retransmitTimeout > int64(e.cfg.MaxRetransmitTimeout) {
		e.retransmitTimeout = int64(e.cfg.MaxRetransmitTimeout)
	}
}

// PollTimeout reports when HandleTimeout should next be called.
func (e *Endpoint) PollTimeout() (int64, bool) {
	if e.closed || e.done || !e.flightPending {
		return 0, false
	}
	return e.flightSentAt + e.retransmitTimeout, true
}

// PollWrite drains queued outbound datagrams.
func (e *Endpoint) PollWrite() (transport.Raw, bool) {
	if len(e.writes) == 0 {
		return transport.Raw{}, false
	}
	w := e.writes[0]
	e.writes = e.writes[1:]
	return w, true
}

// PollEvent drains queued handshake-lifecycle events.
func (e *Endpoint) PollEvent() (Event, bool) {
	if len(e.events) == 0 {
		return Event{}, false
	}
	ev := e.events[0]
	e.events = e.events[1:]
	return ev, true
}

// applicationDataAAD builds the AEAD additional data for an application
// data record: epoch||seq_no||type||version||length (RFC 6347 §4.1.2.1,
// adapted for the implicit-IV AEAD construction used here).
func applicationDataAAD(rec Record) []byte {
	aad := make([]byte, 13)
	binary.BigEndian.PutUint16(aad[0:2], rec.Epoch)
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, rec.SeqNo)
	copy(aad[2:8], seqBytes[2:8])
	aad[8] = byte(ContentTypeApplicationData)
	aad[9], aad[10] = 254, 253
	binary.BigEndian.PutUint16(aad[11:13], uint16(len(rec.Body)))
	return aad
}

// SendApplicationData seals plaintext (an SCTP packet carried over DTLS,
// spec §4.6 "Record layer carries SCTP") as an epoch-1 application data
// record and queues it for PollWrite.
func (e *Endpoint) SendApplicationData(now int64, plaintext []byte) error {
	if !e.done || e.epoch1 == nil {
		return fmt.Errorf("dtls: handshake not complete")
	}
	seq := e.epoch1.WriteSeq
	header := Record{Type: ContentTypeApplicationData, Version: [2]byte{254, 253}, Epoch: 1, SeqNo: seq}
	sealed, _, err := e.epoch1.SealApplicationData(e.recordWriteIV, plaintext, applicationDataAAD(header))
	if err != nil {
		return err
	}
	header.Body = sealed
	e.writes = append(e.writes, transport.New(now, transport.Tuple{Protocol: transport.ProtocolUDP}, EncodeRecord(header)))
	return nil
}

// PollApplicationData drains one decrypted inbound application-data
// payload.
func (e *Endpoint) PollApplicationData() ([]byte, bool) {
	if len(e.appData) == 0 {
		return nil, false
	}
	d := e.appData[0]
	e.appData = e.appData[1:]
	return d, true
}

// HandshakeComplete reports whether the handshake finished (successfully
// or not); check the most recent Event for which.
func (e *Endpoint) HandshakeComplete() bool { return e.done }

// Close tears down the association; a close_notify alert is left to the
// caller, since its record must ride the current epoch's cipher state.
func (e *Endpoint) Close() {
	e.closed = true
	e.events = append(e.events, Event{Kind: EventClosed})
}

// SRTPKeyingMaterialResult returns the exported SRTP keys once the
// handshake has completed.
func (e *Endpoint) SRTPKeyingMaterialResult() (SRTPKeyingMaterial, bool) {
	if !e.done || e.masterSecret == nil {
		return SRTPKeyingMaterial{}, false
	}
	return e.srtpKeys, true
}
