package encode

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/ayusman/posecast/internal/detector"
)

// ErrLandmarkIndex is returned when a configured landmark index does not exist
// for the tracked subject kind or the detection at hand.
var ErrLandmarkIndex = errors.New("landmark index out of range")

// BoxFormat controls how a bounding box is laid out in a record.
type BoxFormat int

const (
	// BoxDefault uses the profile's layout.
	BoxDefault BoxFormat = iota
	// BoxTuple emits the box as one (x, y, w, h) tuple.
	BoxTuple
	// BoxFlat emits the four box values inline.
	BoxFlat
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *BoxFormat) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "default":
		*f = BoxDefault
	case "tuple":
		*f = BoxTuple
	case "flat":
		*f = BoxFlat
	default:
		return errors.Errorf("unknown box format %q (want tuple or flat)", text)
	}
	return nil
}

// DimsPosition controls where the frame height and width go in a record.
type DimsPosition int

const (
	// DimsDefault uses the profile's placement.
	DimsDefault DimsPosition = iota
	// DimsFrame emits the dimensions once, before any subject.
	DimsFrame
	// DimsSubject emits the dimensions in every subject, after its label.
	DimsSubject
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DimsPosition) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "default":
		*d = DimsDefault
	case "frame":
		*d = DimsFrame
	case "subject":
		*d = DimsSubject
	default:
		return errors.Errorf("unknown dims position %q (want frame or subject)", text)
	}
	return nil
}

// Profile describes what the tracked subject kind contributes to a record.
type Profile struct {
	Kind detector.Kind
	// Sentinel is the single value sent when nothing is detected.
	Sentinel string
	// Landmarks is the number of landmarks per subject.
	Landmarks int
	// MultiSubject encodes every detection; otherwise only the first.
	MultiSubject bool
	// Labels reports whether subjects carry a classification label.
	Labels bool
	// SubjectDims places the frame height and width in every subject,
	// after its label, instead of once at the front of the record.
	SubjectDims bool
	// BoxFormat is the default bounding box layout.
	BoxFormat BoxFormat
}

var (
	// HandProfile encodes any number of labelled hands with tuple boxes.
	HandProfile = Profile{
		Kind:         detector.KindHand,
		Sentinel:     "NoHand",
		Landmarks:    detector.NumHandLandmarks,
		MultiSubject: true,
		Labels:       true,
		SubjectDims:  true,
		BoxFormat:    BoxTuple,
	}

	// BodyProfile encodes a single unlabelled body with a flattened box.
	BodyProfile = Profile{
		Kind:      detector.KindBody,
		Sentinel:  "NoBody",
		Landmarks: detector.NumBodyLandmarks,
		BoxFormat: BoxFlat,
	}
)

// ProfileFor returns the profile for a subject kind.
func ProfileFor(kind detector.Kind) Profile {
	if kind == detector.KindBody {
		return BodyProfile
	}
	return HandProfile
}

// IndexMode says how the landmark subset was configured.
type IndexMode int

const (
	// IndexAll selects every landmark of the profile.
	IndexAll IndexMode = iota
	// IndexNone selects no landmarks; the landmark list is emitted empty.
	IndexNone
	// IndexList selects exactly the listed indices, in order.
	IndexList
)

// IndexSubset is the configured landmark selection.
type IndexSubset struct {
	Mode    IndexMode
	Indices []int
}

// Resolve returns the concrete indices for a subject with n landmarks.
func (s IndexSubset) Resolve(n int) []int {
	switch s.Mode {
	case IndexNone:
		return []int{}
	case IndexList:
		if len(s.Indices) > 0 {
			return append([]int(nil), s.Indices...)
		}
	}
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	return all
}

// Options is the output configuration. It is fixed for the life of an Assembler.
type Options struct {
	Transformer Transformer

	IncludeFPS        bool
	IncludeLabel      bool
	IncludeHeight     bool
	IncludeWidth      bool
	IncludeBox        bool
	IncludeCenter     bool
	IncludeVisibility bool

	// MirrorLabel swaps Left and Right; the camera image is mirrored
	// relative to the subject.
	MirrorLabel bool
	// CorrectBoxHeight uses the true y-extent for the box height.
	CorrectBoxHeight bool
	BoxFormat        BoxFormat
	DimsPosition     DimsPosition
	Landmarks        IndexSubset
}

// FrameInfo is the per-frame metadata a record may include.
type FrameInfo struct {
	Width  int
	Height int
	FPS    int
}

// Assembler builds records for one subject kind and one set of options.
type Assembler struct {
	profile   Profile
	opts      Options
	indices   []int
	boxFormat   BoxFormat
	subjectDims bool
}

// NewAssembler validates the options against the profile and returns an Assembler.
func NewAssembler(profile Profile, opts Options) (*Assembler, error) {
	indices := opts.Landmarks.Resolve(profile.Landmarks)
	for _, idx := range indices {
		if idx < 0 || idx >= profile.Landmarks {
			return nil, errors.Wrapf(ErrLandmarkIndex, "index %d, %s has %d landmarks",
				idx, profile.Kind, profile.Landmarks)
		}
	}

	boxFormat := opts.BoxFormat
	if boxFormat == BoxDefault {
		boxFormat = profile.BoxFormat
	}

	subjectDims := profile.SubjectDims
	switch opts.DimsPosition {
	case DimsFrame:
		subjectDims = false
	case DimsSubject:
		subjectDims = true
	}

	return &Assembler{
		profile:     profile,
		opts:        opts,
		indices:     indices,
		boxFormat:   boxFormat,
		subjectDims: subjectDims,
	}, nil
}

// Profile returns the subject profile the assembler encodes.
func (a *Assembler) Profile() Profile {
	return a.profile
}

// Sentinel returns the record sent for a frame with no detections.
func (a *Assembler) Sentinel() Record {
	return Record{String(a.profile.Sentinel)}
}

// Assemble encodes one frame's detections. Frame-level fields come first,
// then each subject's label, dimensions when they are kept per subject, box,
// center and landmark list.
func (a *Assembler) Assemble(subjects []detector.Subject, frame FrameInfo) (Record, error) {
	if len(subjects) == 0 {
		return a.Sentinel(), nil
	}
	if !a.profile.MultiSubject {
		subjects = subjects[:1]
	}

	o := a.opts
	rec := make(Record, 0, 4+4*len(subjects))

	if o.IncludeFPS {
		rec = append(rec, Int(frame.FPS))
	}
	if !a.subjectDims {
		rec = a.appendDims(rec, frame)
	}

	for _, s := range subjects {
		if o.IncludeLabel && a.profile.Labels {
			label := s.Label
			if o.MirrorLabel {
				label = mirrorLabel(label)
			}
			rec = append(rec, String(label))
		}
		if a.subjectDims {
			rec = a.appendDims(rec, frame)
		}

		if o.IncludeBox || o.IncludeCenter {
			box, center := Extract(s.Points, frame.Width, frame.Height, o.Transformer.System, o.CorrectBoxHeight)
			if o.IncludeBox {
				rec = a.appendBox(rec, box)
			}
			if o.IncludeCenter {
				rec = append(rec, Tuple{a.float(center.X), a.float(center.Y)})
			}
		}

		landmarks, err := a.landmarks(s, frame)
		if err != nil {
			return nil, err
		}
		rec = append(rec, landmarks)
	}

	return rec, nil
}

func (a *Assembler) appendDims(rec Record, frame FrameInfo) Record {
	if a.opts.IncludeHeight {
		rec = append(rec, Int(frame.Height))
	}
	if a.opts.IncludeWidth {
		rec = append(rec, Int(frame.Width))
	}
	return rec
}

func (a *Assembler) appendBox(rec Record, box BoundingBox) Record {
	values := []Value{a.float(box.XMin), a.float(box.YMin), a.float(box.Width), a.float(box.Height)}
	if a.boxFormat == BoxFlat {
		return append(rec, values...)
	}
	return append(rec, Tuple(values))
}

func (a *Assembler) landmarks(s detector.Subject, frame FrameInfo) (List, error) {
	t := a.opts.Transformer
	out := make(List, 0, len(a.indices))

	for _, idx := range a.indices {
		if idx >= len(s.Points) {
			return nil, errors.Wrapf(ErrLandmarkIndex, "index %d, detection has %d landmarks", idx, len(s.Points))
		}
		p := s.Points[idx]
		v := t.Transform(p, frame.Width, frame.Height)

		entry := make(List, 0, 4)
		if a.opts.IncludeVisibility {
			var vis float64
			if p.Visibility != nil {
				vis = *p.Visibility
			}
			entry = append(entry, a.float(vis))
		}
		entry = append(entry, a.coord(v.X), a.coord(v.Y), a.coord(v.Z))
		out = append(out, entry)
	}

	return out, nil
}

// coord renders a transformed coordinate: integral in pixel space, float otherwise.
func (a *Assembler) coord(v float64) Value {
	if a.opts.Transformer.System == Pixel {
		return Int(int64(v))
	}
	return Float(v)
}

func (a *Assembler) float(v float64) Value {
	return Float(a.opts.Transformer.Round(v))
}

func mirrorLabel(label string) string {
	switch label {
	case "Left":
		return "Right"
	case "Right":
		return "Left"
	}
	return label
}
