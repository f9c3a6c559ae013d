package extfile

import "github.com/MikeHolman/extfile/ioerr"

// fakeFrame is an in-memory Frame backed by a growable byte slice,
// in the spirit of blkfile's testReadWriterAt fake: enough behavior to
// drive the engine end to end without touching the filesystem.
type fakeFrame struct {
	file []byte

	window   []byte
	windowAt int64

	connected   bool
	mayRead     bool
	mayWrite    bool
	mayPosition bool
	terminal    bool
	windowsText bool

	flushCount int
}

func newFakeFrame() *fakeFrame {
	return &fakeFrame{mayRead: true, mayWrite: true, mayPosition: true}
}

func (f *fakeFrame) ReadFrame(offset, requiredBytes int64, handler ioerr.Handler) int64 {
	f.regrow(offset, requiredBytes)
	avail := int64(len(f.file)) - offset
	if avail < 0 {
		avail = 0
	}
	if avail > requiredBytes {
		avail = requiredBytes
	}
	return avail
}

func (f *fakeFrame) WriteFrame(offset, requiredBytes int64, handler ioerr.Handler) {
	f.regrow(offset, requiredBytes)
}

func (f *fakeFrame) regrow(offset, need int64) {
	// like the real frame, a request at the window's own offset never
	// shrinks it.
	if offset == f.windowAt && need < int64(len(f.window)) {
		need = int64(len(f.window))
	}
	if offset+need > int64(len(f.file)) {
		f.file = append(f.file, make([]byte, offset+need-int64(len(f.file)))...)
	}
	f.window = f.file[offset : offset+need]
	f.windowAt = offset
}

func (f *fakeFrame) Frame() []byte      { return f.window }
func (f *fakeFrame) FrameLength() int64 { return int64(len(f.window)) }
func (f *fakeFrame) FrameAt() int64     { return f.windowAt }
func (f *fakeFrame) Flush(handler ioerr.Handler) { f.flushCount++ }

func (f *fakeFrame) Truncate(offset int64, handler ioerr.Handler) {
	if offset < int64(len(f.file)) {
		f.file = f.file[:offset]
	}
}

func (f *fakeFrame) TruncateFrame(offset int64, handler ioerr.Handler) {
	if offset <= f.windowAt {
		f.window = nil
		f.windowAt = offset
		return
	}
	if offset < f.windowAt+int64(len(f.window)) {
		f.window = f.window[:offset-f.windowAt]
	}
}

func (f *fakeFrame) Open(path []byte, access Access, status OpenStatus, action *Action, position Position, handler ioerr.Handler) {
	f.connected = true
}

func (f *fakeFrame) Close(status CloseStatus, handler ioerr.Handler) { f.connected = false }
func (f *fakeFrame) KnownSize() (int64, bool)                        { return int64(len(f.file)), true }
func (f *fakeFrame) IsConnected() bool                                { return f.connected }
func (f *fakeFrame) MayPosition() bool                                { return f.mayPosition }
func (f *fakeFrame) MayRead() bool                                    { return f.mayRead }
func (f *fakeFrame) MayWrite() bool                                   { return f.mayWrite }
func (f *fakeFrame) MayAsynchronous() bool                            { return f.mayPosition }
func (f *fakeFrame) IsTerminal() bool                                 { return f.terminal }
func (f *fakeFrame) IsWindowsTextFile() bool                          { return f.windowsText }
func (f *fakeFrame) Predefine(fd int)                                 { f.connected = true }
func (f *fakeFrame) BeginRecord()                                     {}
