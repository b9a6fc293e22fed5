package pylon

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/basler-lab/pylonpanel/util"

	"github.com/cenkalti/backoff"
)

// pixel format codes on the wire
var formatCodes = map[byte]PixelFormat{
	0: Mono8,
	1: Mono16,
	2: RGB8,
	3: BGR8,
}

// frameBuffer holds frames arriving from the stream according to the
// acquisition strategy.  Under LatestImageOnly an undelivered frame is
// overwritten by a newer one; under OneByOne frames queue in order, with
// the oldest dropped if the consumer falls far behind.
type frameBuffer struct {
	sync.Mutex

	strategy Strategy
	latest   *Frame
	queue    []Frame
	dropped  uint64
	notify   chan struct{}
}

const oneByOneDepth = 64

func newFrameBuffer(s Strategy) *frameBuffer {
	return &frameBuffer{strategy: s, notify: make(chan struct{}, 1)}
}

func (fb *frameBuffer) write(f Frame) {
	fb.Lock()
	switch fb.strategy {
	case LatestImageOnly:
		if fb.latest != nil {
			fb.dropped++
		}
		fb.latest = &f
	case OneByOne:
		if len(fb.queue) >= oneByOneDepth {
			fb.queue = fb.queue[1:]
			fb.dropped++
		}
		fb.queue = append(fb.queue, f)
	}
	fb.Unlock()
	select {
	case fb.notify <- struct{}{}:
	default:
	}
}

func (fb *frameBuffer) take() (Frame, bool) {
	fb.Lock()
	defer fb.Unlock()
	switch fb.strategy {
	case LatestImageOnly:
		if fb.latest == nil {
			return Frame{}, false
		}
		f := *fb.latest
		fb.latest = nil
		return f, true
	default:
		if len(fb.queue) == 0 {
			return Frame{}, false
		}
		f := fb.queue[0]
		fb.queue = fb.queue[1:]
		return f, true
	}
}

// next blocks until a frame is available or the timeout elapses
func (fb *frameBuffer) next(timeout time.Duration) (Frame, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if f, ok := fb.take(); ok {
			return f, nil
		}
		select {
		case <-fb.notify:
		case <-deadline.C:
			return Frame{}, ErrAcquisitionTimeout{Timeout: timeout}
		}
	}
}

// Dropped returns the number of frames discarded by the buffering policy
func (fb *frameBuffer) Dropped() uint64 {
	fb.Lock()
	defer fb.Unlock()
	return fb.dropped
}

/*RemoteCamera is a camera attached over TCP speaking the telegram
protocol in this package.

The connection is request/response for parameter access.  During
acquisition the remote end pushes frame telegrams on the same
connection; a reader goroutine files them into a frameBuffer and
RetrieveFrame drains it.  Frame telegrams carry the instantaneous
frame rate so ResultingFrameRate does not need to interleave a
request with the stream.
*/
type RemoteCamera struct {
	// Addr is the network address of the remote camera, host:port
	Addr string

	// Timeout bounds each request/response cycle
	Timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
	rdr  *bufio.Reader

	acqMu     sync.Mutex
	acquiring bool
	buf       *frameBuffer
	streamFPS float64
	done      chan struct{}
}

// NewRemoteCamera returns a camera handle; call Open before use
func NewRemoteCamera(addr string) *RemoteCamera {
	return &RemoteCamera{Addr: addr, Timeout: 5 * time.Second}
}

// Open establishes the connection.  Connection attempts are retried with
// exponential backoff; camera bootup after power-on can take several
// seconds and we do not want to thrash it.
func (c *RemoteCamera) Open() error {
	op := func() error {
		conn, err := util.TCPSetup(c.Addr, c.Timeout)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.conn = conn
		c.rdr = bufio.NewReader(conn)
		c.mu.Unlock()
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.Retry(op, bo)
}

// Close releases the connection, stopping acquisition first
func (c *RemoteCamera) Close() error {
	c.StopAcquisition()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// sendRecv performs one request/response cycle.  It may not be used
// while acquisition is running; the reader goroutine owns the socket.
func (c *RemoteCamera) sendRecv(mp MessagePrimitive) (MessagePrimitive, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return MessagePrimitive{}, errors.New("not connected to camera, call Open first")
	}
	tele, err := MakeTelegram(mp)
	if err != nil {
		return MessagePrimitive{}, err
	}
	c.conn.SetDeadline(time.Now().Add(c.Timeout))
	if _, err := c.conn.Write(tele); err != nil {
		return MessagePrimitive{}, err
	}
	resp, err := c.rdr.ReadBytes(telEnd)
	if err != nil {
		return MessagePrimitive{}, err
	}
	out, err := DecodeTelegram(resp)
	if err != nil {
		return out, err
	}
	if out.Op == OpErr {
		return out, fmt.Errorf("camera: %s", string(out.Data))
	}
	return out, nil
}

func (c *RemoteCamera) requestFloat(op byte, name string) (float64, error) {
	resp, err := c.sendRecv(MessagePrimitive{Op: op, Name: name})
	if err != nil {
		return 0, err
	}
	return unpackFloat(resp.Data)
}

func (c *RemoteCamera) requestString(op byte, name string) (string, error) {
	resp, err := c.sendRecv(MessagePrimitive{Op: op, Name: name})
	if err != nil {
		return "", err
	}
	return string(resp.Data), nil
}

func (c *RemoteCamera) command(op byte, name string, data []byte) error {
	resp, err := c.sendRecv(MessagePrimitive{Op: op, Name: name, Data: data})
	if err != nil {
		return err
	}
	if resp.Op != OpAck {
		return fmt.Errorf("expected ack, got op %d", resp.Op)
	}
	return nil
}

// Parameter looks up a capability by name against the Features table
func (c *RemoteCamera) Parameter(name string) (Parameter, error) {
	kind, ok := Features[name]
	if !ok {
		return nil, ErrParameterNotFound{Parameter: name}
	}
	p := remoteParam{c: c, name: name, kind: kind}
	switch kind {
	case KindInt, KindFloat:
		return &remoteNumeric{p}, nil
	case KindBool:
		return &remoteBool{p}, nil
	case KindEnum:
		return &remoteEnum{p}, nil
	case KindCommand:
		return &remoteCommand{p}, nil
	default:
		return &remoteString{p}, nil
	}
}

// Parameters lists the known capability names
func (c *RemoteCamera) Parameters() []string {
	out := make([]string, 0, len(Features))
	for k := range Features {
		out = append(out, k)
	}
	return out
}

// LoadUserSet restores the parameter snapshot in the given slot
func (c *RemoteCamera) LoadUserSet(s UserSet) error {
	if !ValidUserSet(s) {
		return fmt.Errorf("unknown user set %q", s)
	}
	return c.command(OpLoadSet, string(s), nil)
}

// SaveUserSet stores the current parameters into the given slot
func (c *RemoteCamera) SaveUserSet(s UserSet) error {
	if !ValidUserSet(s) {
		return fmt.Errorf("unknown user set %q", s)
	}
	return c.command(OpSaveSet, string(s), nil)
}

// StartAcquisition begins streaming and spawns the reader goroutine
func (c *RemoteCamera) StartAcquisition(s Strategy) error {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	if c.acquiring {
		return nil
	}
	err := c.command(OpStart, "", []byte{byte(s)})
	if err != nil {
		return err
	}
	c.buf = newFrameBuffer(s)
	c.done = make(chan struct{})
	c.acquiring = true
	go c.readStream(c.buf, c.done)
	return nil
}

// readStream consumes frame telegrams until the remote acks a stop or
// the connection drops
func (c *RemoteCamera) readStream(buf *frameBuffer, done chan struct{}) {
	defer close(done)
	for {
		c.mu.Lock()
		rdr := c.rdr
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.Timeout))
		raw, err := rdr.ReadBytes(telEnd)
		if err != nil {
			return
		}
		mp, err := DecodeTelegram(raw)
		if err != nil {
			// bad frame on the wire; skip it rather than kill the stream
			continue
		}
		if mp.Op != OpFrame {
			// stop ack or anything else ends the stream
			return
		}
		f, fps, err := decodeFrame(mp.Data)
		if err != nil {
			continue
		}
		c.acqMu.Lock()
		c.streamFPS = fps
		c.acqMu.Unlock()
		buf.write(f)
	}
}

// StopAcquisition ends streaming.  Safe to call when not acquiring.
func (c *RemoteCamera) StopAcquisition() error {
	c.acqMu.Lock()
	if !c.acquiring {
		c.acqMu.Unlock()
		return nil
	}
	c.acquiring = false
	done := c.done
	c.acqMu.Unlock()

	// the write races the reader goroutine on purpose; TCP writes are
	// safe concurrent with reads, and the reader exits on the stop ack
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		tele, err := MakeTelegram(MessagePrimitive{Op: OpStop})
		if err == nil {
			conn.Write(tele)
		}
	}
	select {
	case <-done:
	case <-time.After(c.Timeout):
	}
	return nil
}

// Acquiring reports whether a stream is active
func (c *RemoteCamera) Acquiring() bool {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	return c.acquiring
}

// RetrieveFrame returns the next buffered frame, waiting up to timeout
func (c *RemoteCamera) RetrieveFrame(timeout time.Duration) (Frame, error) {
	c.acqMu.Lock()
	buf := c.buf
	acq := c.acquiring
	c.acqMu.Unlock()
	if !acq || buf == nil {
		return Frame{}, errors.New("camera is not acquiring")
	}
	return buf.next(timeout)
}

// GrabOne captures a single frame outside of streaming
func (c *RemoteCamera) GrabOne(timeout time.Duration) (Frame, error) {
	resp, err := c.sendRecv(MessagePrimitive{Op: OpFrame})
	if err != nil {
		return Frame{}, err
	}
	f, _, err := decodeFrame(resp.Data)
	return f, err
}

// ResultingFrameRate is the frame rate the device reports, in fps
func (c *RemoteCamera) ResultingFrameRate() (float64, error) {
	c.acqMu.Lock()
	if c.acquiring {
		fps := c.streamFPS
		c.acqMu.Unlock()
		return fps, nil
	}
	c.acqMu.Unlock()
	return c.requestFloat(OpGet, "ResultingFrameRateAbs")
}

// Dropped returns the frames dropped by the buffering policy this
// acquisition, 0 if not acquiring
func (c *RemoteCamera) Dropped() uint64 {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	if c.buf == nil {
		return 0
	}
	return c.buf.Dropped()
}

// encodeFrame packs a frame and the instantaneous fps for the wire
func encodeFrame(f Frame, fps float64) []byte {
	out := make([]byte, 0, 17+len(f.Data))
	out = append(out, packFloat(fps)...)
	wh := make([]byte, 8)
	dataOrder.PutUint32(wh[0:4], uint32(f.Width))
	dataOrder.PutUint32(wh[4:8], uint32(f.Height))
	out = append(out, wh...)
	var code byte
	for k, v := range formatCodes {
		if v == f.Format {
			code = k
		}
	}
	out = append(out, code)
	out = append(out, f.Data...)
	return out
}

// decodeFrame unpacks a frame telegram payload
func decodeFrame(data []byte) (Frame, float64, error) {
	if len(data) < 17 {
		return Frame{}, 0, fmt.Errorf("frame payload too short: %d bytes", len(data))
	}
	fps, err := unpackFloat(data[:8])
	if err != nil {
		return Frame{}, 0, err
	}
	w := int(dataOrder.Uint32(data[8:12]))
	h := int(dataOrder.Uint32(data[12:16]))
	format, ok := formatCodes[data[16]]
	if !ok {
		return Frame{}, 0, fmt.Errorf("unknown pixel format code %d", data[16])
	}
	pix := append([]byte(nil), data[17:]...)
	return Frame{Width: w, Height: h, Format: format, Data: pix}, fps, nil
}

type remoteParam struct {
	c    *RemoteCamera
	name string
	kind ParamKind
}

func (p remoteParam) Name() string    { return p.name }
func (p remoteParam) Kind() ParamKind { return p.kind }

type remoteNumeric struct{ remoteParam }

func (p *remoteNumeric) Get() (float64, error) { return p.c.requestFloat(OpGet, p.name) }
func (p *remoteNumeric) Set(v float64) error   { return p.c.command(OpSet, p.name, packFloat(v)) }
func (p *remoteNumeric) Min() (float64, error) { return p.c.requestFloat(OpMin, p.name) }
func (p *remoteNumeric) Max() (float64, error) { return p.c.requestFloat(OpMax, p.name) }

func (p *remoteNumeric) Increment() (float64, error) {
	inc, err := p.c.requestFloat(OpInc, p.name)
	if err != nil {
		return 0, ErrNoIncrement
	}
	return inc, nil
}

type remoteBool struct{ remoteParam }

func (p *remoteBool) Get() (bool, error) {
	resp, err := p.c.sendRecv(MessagePrimitive{Op: OpGet, Name: p.name})
	if err != nil {
		return false, err
	}
	if len(resp.Data) != 1 {
		return false, fmt.Errorf("bool payload must be 1 byte, got %d", len(resp.Data))
	}
	return resp.Data[0] != 0, nil
}

func (p *remoteBool) Set(v bool) error {
	data := []byte{0}
	if v {
		data[0] = 1
	}
	return p.c.command(OpSet, p.name, data)
}

type remoteEnum struct{ remoteParam }

func (p *remoteEnum) Get() (string, error) { return p.c.requestString(OpGet, p.name) }
func (p *remoteEnum) Set(v string) error   { return p.c.command(OpSet, p.name, []byte(v)) }

func (p *remoteEnum) Options() ([]string, error) {
	resp, err := p.c.sendRecv(MessagePrimitive{Op: OpOptions, Name: p.name})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	chunks := bytes.Split(resp.Data, []byte{0})
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = string(c)
	}
	return out, nil
}

type remoteCommand struct{ remoteParam }

func (p *remoteCommand) Execute() error { return p.c.command(OpExec, p.name, nil) }

type remoteString struct{ remoteParam }

func (p *remoteString) Get() (string, error) { return p.c.requestString(OpGet, p.name) }
