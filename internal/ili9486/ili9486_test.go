package ili9486

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"ilipanel/internal/sim"
)

func TestStartupOrder(t *testing.T) {
	r := newRig(t, false, nil)
	ev := r.panel.Events()

	// Reset pulse comes first, then the backlight is forced off before any
	// byte reaches the controller.
	var kinds []string
	for _, e := range ev {
		switch {
		case e.Kind == sim.EventRST:
			kinds = append(kinds, e.String())
		case e.Kind == sim.EventBL && e.Duty == 0:
			kinds = append(kinds, "bl off")
		case e.Kind == sim.EventBL && e.Duty == gpio.DutyMax:
			kinds = append(kinds, "bl full")
		case e.Kind == sim.EventBL:
			kinds = append(kinds, "bl partial")
		}
	}
	wantLines := []string{"rst High", "rst Low", "rst High", "bl off", "bl full"}
	if len(kinds) != len(wantLines) {
		t.Fatalf("line events = %v, want %v", kinds, wantLines)
	}
	for i := range wantLines {
		if kinds[i] != wantLines[i] {
			t.Errorf("line event %d = %q, want %q", i, kinds[i], wantLines[i])
		}
	}
	firstTx, lastBL := -1, -1
	for i, e := range ev {
		if e.Kind == sim.EventTx && firstTx < 0 {
			firstTx = i
		}
		if e.Kind == sim.EventBL {
			lastBL = i
		}
		if e.Kind == sim.EventBL && e.Duty == 0 && firstTx >= 0 {
			t.Errorf("backlight off after the first transfer")
		}
	}
	if lastBL != len(ev)-1 {
		t.Errorf("default backlight restored at event %d of %d", lastBL, len(ev))
	}

	var want []byte
	for _, c := range Waveshare4inch {
		want = append(want, c.Reg)
	}
	want = append(want, cmdDisplayFunc, cmdMemoryAccess, cmdSleepOut, cmdDisplayOn, cmdColumnAddr, cmdRowAddr, cmdMemoryWrite)
	got := r.panel.Commands()
	if string(got) != string(want) {
		t.Fatalf("commands = % X\nwant       % X", got, want)
	}

	wantSleeps := []time.Duration{resetPulse, resetPulse, resetPulse, orientationDelay, sleepOutDelay}
	if len(r.sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", r.sleeps, wantSleeps)
	}
	for i := range wantSleeps {
		if r.sleeps[i] != wantSleeps[i] {
			t.Errorf("sleep %d = %v, want %v", i, r.sleeps[i], wantSleeps[i])
		}
	}

	if s := r.panel.State(); !s.Awake || !s.On || s.Backlight != 255 {
		t.Errorf("panel state after startup = %+v", s)
	}
	if r.dev.Backlight() != 255 || r.dev.DefaultBacklight() != 255 {
		t.Errorf("backlight = %d default %d, want 255", r.dev.Backlight(), r.dev.DefaultBacklight())
	}
}

func TestInitTableFraming(t *testing.T) {
	r := newRig(t, false, nil)
	got := frames(t, r.panel.Events())

	var want []frame
	for _, c := range Waveshare4inch {
		want = append(want, cmdFrame(c.Reg))
		for _, b := range c.Data {
			want = append(want, dataFrame(b))
		}
	}
	if len(got) < len(want) {
		t.Fatalf("only %d frames recorded", len(got))
	}
	checkFrames(t, got[:len(want)], want)
}

func TestSoftResetWithoutResetLine(t *testing.T) {
	r := newRig(t, false, func(o *Opts) { o.RST = nil })
	if cmds := r.panel.Commands(); len(cmds) == 0 || cmds[0] != cmdSoftReset {
		t.Errorf("first command = % X, want soft reset", cmds)
	}
}

func TestOrientationTable(t *testing.T) {
	tests := []struct {
		o        Orientation
		madctl   byte
		dispFunc byte
		w, h     int
	}{
		{L2R_U2D, 0x08, 0x22, 320, 480},
		{L2R_D2U, 0x08, 0x62, 320, 480},
		{R2L_U2D, 0x08, 0x02, 320, 480},
		{R2L_D2U, 0x08, 0x42, 320, 480},
		{U2D_L2R, 0x28, 0x22, 480, 320},
		{U2D_R2L, 0x28, 0x02, 480, 320},
		{D2U_L2R, 0x28, 0x62, 480, 320},
		{D2U_R2L, 0x28, 0x42, 480, 320},
	}
	r := newRig(t, false, nil)
	for _, tt := range tests {
		t.Run(tt.o.String(), func(t *testing.T) {
			r.take(t)
			if err := r.dev.SetOrientation(tt.o); err != nil {
				t.Fatal(err)
			}
			checkFrames(t, r.take(t), []frame{
				cmdFrame(cmdDisplayFunc), dataFrame(0x00), dataFrame(tt.dispFunc),
				cmdFrame(cmdMemoryAccess), dataFrame(tt.madctl),
			})
			if r.dev.Width() != tt.w || r.dev.Height() != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", r.dev.Width(), r.dev.Height(), tt.w, tt.h)
			}
			if r.dev.Size() != 320*480 {
				t.Errorf("Size() = %d", r.dev.Size())
			}
			if w, h := r.panel.Size(); w != tt.w || h != tt.h {
				t.Errorf("panel frame = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
			if r.dev.Orientation() != tt.o {
				t.Errorf("Orientation() = %s", r.dev.Orientation())
			}
		})
	}
}

func TestInvalidOrientation(t *testing.T) {
	r := newRig(t, false, nil)
	r.take(t)
	if err := r.dev.SetOrientation(Orientation(8)); !errors.Is(err, ErrInvalidOrientation) {
		t.Errorf("SetOrientation(8) error = %v", err)
	}
	if f := r.take(t); len(f) != 0 {
		t.Errorf("invalid orientation sent %v", f)
	}
	if r.dev.Orientation() != L2R_U2D {
		t.Errorf("orientation changed to %s", r.dev.Orientation())
	}

	p := sim.New(false)
	_, err := New(p.Conn(), &Opts{DC: p.DC(), Orientation: Orientation(42), Sleep: func(time.Duration) {}})
	if !errors.Is(err, ErrInvalidOrientation) {
		t.Errorf("New() error = %v, want ErrInvalidOrientation", err)
	}
	if len(p.Commands()) != 0 {
		t.Error("New() touched the bus with an invalid orientation")
	}
}

func TestParseOrientation(t *testing.T) {
	for o := L2R_U2D; o <= D2U_R2L; o++ {
		got, err := ParseOrientation(o.String())
		if err != nil || got != o {
			t.Errorf("ParseOrientation(%q) = %v, %v", o, got, err)
		}
	}
	if _, err := ParseOrientation("SIDEWAYS"); !errors.Is(err, ErrInvalidOrientation) {
		t.Errorf("ParseOrientation(SIDEWAYS) error = %v", err)
	}
}

func TestNewRequiresDC(t *testing.T) {
	p := sim.New(false)
	if _, err := New(p.Conn(), &Opts{}); err == nil {
		t.Error("New() without DC should fail")
	}
	if _, err := New(p.Conn(), nil); err == nil {
		t.Error("New(nil) should fail")
	}
}

func TestNewSPI(t *testing.T) {
	p := sim.New(false)
	d, err := NewSPI(p.Port(), &Opts{
		CS: p.CS(), DC: p.DC(), RST: p.RST(), BL: p.BL(),
		Orientation: U2D_L2R,
		Background:  Blue,
		Sleep:       func(time.Duration) {},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Width() != 480 || d.Height() != 320 {
		t.Errorf("size = %dx%d", d.Width(), d.Height())
	}
	if got := p.Pixel(479, 319); got != uint16(Blue) {
		t.Errorf("corner = 0x%04X, want background", got)
	}
	if d.String() != "ili9486.Dev{480x320, U2D_L2R}" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestBacklight(t *testing.T) {
	r := newRig(t, false, func(o *Opts) { o.DefaultBacklight = 200 })
	if r.dev.Backlight() != 200 {
		t.Fatalf("Backlight() = %d after startup, want 200", r.dev.Backlight())
	}

	if err := r.dev.SetBacklight(128); err != nil {
		t.Fatal(err)
	}
	if got := r.panel.State().Backlight; got < 127 || got > 128 {
		t.Errorf("panel backlight = %d, want ~128", got)
	}
	if err := r.dev.BacklightOff(); err != nil {
		t.Fatal(err)
	}
	if r.dev.Backlight() != 0 || r.panel.State().Backlight != 0 {
		t.Errorf("BacklightOff left %d / %d", r.dev.Backlight(), r.panel.State().Backlight)
	}

	r.dev.ChangeDefaultBacklight(255)
	if r.dev.Backlight() != 0 {
		t.Error("ChangeDefaultBacklight changed the current level")
	}
	if err := r.dev.RestoreBacklight(); err != nil {
		t.Fatal(err)
	}
	if r.dev.Backlight() != 255 || r.panel.State().Backlight != 255 {
		t.Errorf("RestoreBacklight left %d / %d", r.dev.Backlight(), r.panel.State().Backlight)
	}
}

func TestKeepBacklightOff(t *testing.T) {
	r := newRig(t, false, func(o *Opts) { o.KeepBacklightOff = true })
	if r.dev.Backlight() != 0 || r.panel.State().Backlight != 0 {
		t.Errorf("backlight = %d", r.dev.Backlight())
	}
}

// pwmless refuses PWM so only full on and full off work.
type pwmless struct {
	*sim.Pin
}

func (p pwmless) PWM(gpio.Duty, physic.Frequency) error {
	return errors.New("no pwm")
}

func TestBacklightWithoutPWM(t *testing.T) {
	line := sim.New(false)
	r := newRig(t, false, func(o *Opts) { o.BL = pwmless{line.BL()} })
	if got := line.State().Backlight; got != 255 {
		t.Errorf("backlight line = %d after startup, want full on", got)
	}
	if err := r.dev.SetBacklight(0); err != nil {
		t.Fatal(err)
	}
	if got := line.State().Backlight; got != 0 {
		t.Errorf("backlight line = %d, want off", got)
	}
	if err := r.dev.SetBacklight(100); err == nil {
		t.Error("SetBacklight(100) without PWM should fail")
	}
}

func TestBackground(t *testing.T) {
	r := newRig(t, false, nil)
	r.dev.SetBackground(Magenta)
	if r.dev.Background() != Magenta {
		t.Fatalf("Background() = %s", r.dev.Background())
	}
	if got := r.panel.Pixel(10, 10); got != uint16(Black) {
		t.Errorf("SetBackground redrew the panel: 0x%04X", got)
	}
	if err := r.dev.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := r.panel.Pixel(10, 10); got != uint16(Magenta) {
		t.Errorf("pixel after Clear = 0x%04X, want Magenta", got)
	}
	if err := r.dev.ClearColor(Green); err != nil {
		t.Fatal(err)
	}
	if got := r.panel.Pixel(319, 479); got != uint16(Green) {
		t.Errorf("pixel after ClearColor = 0x%04X, want Green", got)
	}
	if r.dev.Background() != Magenta {
		t.Error("ClearColor changed the background")
	}
}

func TestInvert(t *testing.T) {
	r := newRig(t, false, nil)
	if err := r.dev.Invert(true); err != nil {
		t.Fatal(err)
	}
	if !r.panel.State().Inverted {
		t.Error("panel not inverted")
	}
	if err := r.dev.Invert(false); err != nil {
		t.Fatal(err)
	}
	if r.panel.State().Inverted {
		t.Error("panel still inverted")
	}
}

func TestHalt(t *testing.T) {
	r := newRig(t, false, nil)
	r.take(t)
	if err := r.dev.Halt(); err != nil {
		t.Fatal(err)
	}
	checkFrames(t, r.take(t), []frame{cmdFrame(cmdDisplayOff), cmdFrame(cmdSleepIn)})
	if s := r.panel.State(); s.On || s.Awake || s.Backlight != 0 {
		t.Errorf("panel state after Halt = %+v", s)
	}

	if err := r.dev.Fill(0, 0, 1, 1, Red); !errors.Is(err, ErrHalted) {
		t.Errorf("Fill after Halt error = %v", err)
	}
	if _, err := r.dev.DrawString(0, 0, "x", 0, Red); !errors.Is(err, ErrHalted) {
		t.Errorf("DrawString after Halt error = %v", err)
	}
	for name, set := range map[string]func() error{
		"SetBacklight":     func() error { return r.dev.SetBacklight(200) },
		"RestoreBacklight": r.dev.RestoreBacklight,
		"BacklightOff":     r.dev.BacklightOff,
	} {
		if err := set(); !errors.Is(err, ErrHalted) {
			t.Errorf("%s after Halt error = %v", name, err)
		}
	}
	if got := r.panel.State().Backlight; got != 0 {
		t.Errorf("backlight after Halt = %d, want 0", got)
	}
	if err := r.dev.Halt(); err != nil {
		t.Errorf("second Halt error = %v", err)
	}
	if f := r.take(t); len(f) != 0 {
		t.Errorf("halted device sent %v", f)
	}
}

func TestWideBus(t *testing.T) {
	r := newRig(t, true, nil)
	r.take(t)
	if err := r.dev.OpenWindow(1, 2, 3, 4); err != nil {
		t.Fatal(err)
	}
	checkFrames(t, r.take(t), []frame{
		cmdFrame(cmdColumnAddr),
		dataFrame(0, 0x00), dataFrame(0, 0x01), dataFrame(0, 0x00), dataFrame(0, 0x02),
		cmdFrame(cmdRowAddr),
		dataFrame(0, 0x00), dataFrame(0, 0x02), dataFrame(0, 0x00), dataFrame(0, 0x03),
		cmdFrame(cmdMemoryWrite),
	})
	if err := r.dev.WriteColor(Red, 4); err != nil {
		t.Fatal(err)
	}
	checkFrames(t, r.take(t), []frame{dataFrame(0xF8, 0, 0xF8, 0, 0xF8, 0, 0xF8, 0)})
	if got := r.panel.Pixel(2, 3); got != uint16(Red) {
		t.Errorf("Pixel(2,3) = 0x%04X, want Red", got)
	}
	if w, h := r.panel.Size(); w != 320 || h != 480 {
		t.Errorf("wide orientation decoded as %dx%d", w, h)
	}
}

func TestHardwareChipSelect(t *testing.T) {
	r := newRig(t, false, func(o *Opts) { o.CS = nil })
	for _, e := range r.panel.Events() {
		if e.Kind == sim.EventCS {
			t.Fatalf("CS driven without a CS pin: %v", e)
		}
	}
	if err := r.dev.SetPixel(5, 5, Yellow); err != nil {
		t.Fatal(err)
	}
	if got := r.panel.Pixel(5, 5); got != uint16(Yellow) {
		t.Errorf("Pixel(5,5) = 0x%04X", got)
	}
}
