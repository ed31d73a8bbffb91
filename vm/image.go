package vm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Compiled images
// ---------------------------------------------------------------------------

// ImageMagic starts every image file.
var ImageMagic = []byte("YPRK")

// ImageVersion is the current image format version.
const ImageVersion = 1

var (
	// ErrImageFormat is returned for data that is not a Yaprak image.
	ErrImageFormat = errors.New("image: not a yaprak image")

	// ErrImageVersion is returned for images of an unsupported version.
	ErrImageVersion = errors.New("image: unsupported version")

	// ErrImageNative is returned when an image references a native function
	// or module the registry does not provide.
	ErrImageNative = errors.New("image: unknown native")
)

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

type imageFile struct {
	Version   int             `cbor:"1,keyasint"`
	BuildID   string          `cbor:"2,keyasint"`
	Code      []byte          `cbor:"3,keyasint"`
	Lines     []imageLine     `cbor:"4,keyasint,omitempty"`
	Storages  []imageStorage  `cbor:"5,keyasint"`
	Functions []imageFunction `cbor:"6,keyasint,omitempty"`
}

type imageLine struct {
	Offset int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
	Column int `cbor:"3,keyasint"`
}

type imageStorage struct {
	Name      string          `cbor:"1,keyasint"`
	Parent    int             `cbor:"2,keyasint"`
	Constants []imageConstant `cbor:"3,keyasint,omitempty"`
	Variables []string        `cbor:"4,keyasint,omitempty"`
	TempSize  int             `cbor:"5,keyasint"`
}

// imageConstant is a tagged literal record. Compiled functions point into
// the function table (Function is index+1); natives and modules are stored
// by name and resolved again on load.
type imageConstant struct {
	Kind     Kind     `cbor:"1,keyasint"`
	Number   float64  `cbor:"2,keyasint,omitempty"`
	Flag     bool     `cbor:"3,keyasint,omitempty"`
	Text     string   `cbor:"4,keyasint,omitempty"`
	Function int      `cbor:"5,keyasint,omitempty"`
	Module   []string `cbor:"6,keyasint,omitempty"`
	Name     string   `cbor:"7,keyasint,omitempty"`
}

type imageFunction struct {
	Name       string   `cbor:"1,keyasint"`
	ModulePath []string `cbor:"2,keyasint,omitempty"`
	Params     []string `cbor:"3,keyasint,omitempty"`
	Storage    int      `cbor:"4,keyasint"`
	Offset     int      `cbor:"5,keyasint"`
}

// WriteImage serializes p as magic bytes followed by a canonical CBOR
// document. A fresh build ID is assigned when p has none.
func WriteImage(w io.Writer, p *Program) error {
	if p.BuildID == "" {
		p.BuildID = uuid.NewString()
	}
	img := imageFile{
		Version: ImageVersion,
		BuildID: p.BuildID,
		Code:    p.Code,
	}
	for _, l := range p.Lines {
		img.Lines = append(img.Lines, imageLine(l))
	}

	funcIndex := make(map[*FunctionRef]int, len(p.Functions))
	for i, f := range p.Functions {
		funcIndex[f] = i
		img.Functions = append(img.Functions, imageFunction{
			Name:       f.Name,
			ModulePath: f.ModulePath,
			Params:     f.Params,
			Storage:    f.Storage,
			Offset:     f.Offset,
		})
	}

	for _, st := range p.Storages {
		is := imageStorage{
			Name:      st.Name,
			Parent:    st.Parent,
			Variables: st.Variables,
			TempSize:  st.TempSize,
		}
		for i := 0; i < st.Constants; i++ {
			c, err := encodeConstant(st.Memory[i], funcIndex)
			if err != nil {
				return fmt.Errorf("image: storage %s: %w", st.Name, err)
			}
			is.Constants = append(is.Constants, c)
		}
		img.Storages = append(img.Storages, is)
	}

	data, err := imageEncMode.Marshal(&img)
	if err != nil {
		return fmt.Errorf("image: marshal: %w", err)
	}
	if _, err := w.Write(ImageMagic); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	log.Debugf("wrote image %s: %d bytes of code, %d storages", p.BuildID, len(p.Code), len(p.Storages))
	return nil
}

func encodeConstant(v Value, funcIndex map[*FunctionRef]int) (imageConstant, error) {
	obj := Decode(v)
	c := imageConstant{Kind: obj.Kind}
	switch obj.Kind {
	case KindEmpty:
	case KindNumber:
		c.Number = obj.Num
	case KindBool:
		c.Flag = obj.Flag
	case KindText:
		c.Text = obj.Text
	case KindFunction:
		if obj.Func.IsNative() {
			c.Module = obj.Func.ModulePath
			c.Name = obj.Func.Name
		} else {
			i, ok := funcIndex[obj.Func]
			if !ok {
				return c, fmt.Errorf("function %s is not part of the program", obj.Func.QualifiedName())
			}
			c.Function = i + 1
		}
	case KindClass:
		c.Name = obj.Class.Name
	default:
		return c, fmt.Errorf("%s cannot be a constant", obj.Kind)
	}
	return c, nil
}

// IsImage reports whether data starts with the image magic.
func IsImage(data []byte) bool {
	return bytes.HasPrefix(data, ImageMagic)
}

// ReadImage loads an image written by WriteImage, resolving native
// references against reg.
func ReadImage(r io.Reader, reg *Registry) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("image: read: %w", err)
	}
	if !IsImage(data) {
		return nil, ErrImageFormat
	}
	var img imageFile
	if err := cbor.Unmarshal(data[len(ImageMagic):], &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("%w: %d", ErrImageVersion, img.Version)
	}

	p := &Program{Code: img.Code, BuildID: img.BuildID}
	for _, l := range img.Lines {
		p.Lines = append(p.Lines, LineEntry(l))
	}
	for _, f := range img.Functions {
		ref := NewCompiledFunction(f.Name, f.ModulePath, f.Params, f.Storage)
		ref.Offset = f.Offset
		p.Functions = append(p.Functions, ref)
	}

	for _, is := range img.Storages {
		st, err := loadStorage(is, p.Functions, reg)
		if err != nil {
			p.Release()
			return nil, fmt.Errorf("image: storage %s: %w", is.Name, err)
		}
		p.Storages = append(p.Storages, st)
	}

	log.Debugf("read image %s: %d bytes of code, %d storages", p.BuildID, len(p.Code), len(p.Storages))
	return p, nil
}

func loadStorage(is imageStorage, funcs []*FunctionRef, reg *Registry) (*Storage, error) {
	b := NewStorageBuilder(is.Name, is.Parent)
	for _, c := range is.Constants {
		v, err := decodeConstant(c, funcs, reg)
		if err == nil {
			_, err = b.AddConstant(v)
		}
		if err != nil {
			b.Discard()
			return nil, err
		}
	}
	for _, name := range is.Variables {
		if _, err := b.AddVariable(name); err != nil {
			b.Discard()
			return nil, err
		}
	}
	if err := b.SetTempSize(is.TempSize); err != nil {
		b.Discard()
		return nil, err
	}
	st, err := b.Build()
	if err != nil {
		b.Discard()
	}
	return st, err
}

func decodeConstant(c imageConstant, funcs []*FunctionRef, reg *Registry) (Value, error) {
	switch c.Kind {
	case KindEmpty:
		return Empty, nil
	case KindNumber:
		return FromNumber(c.Number), nil
	case KindBool:
		return FromBool(c.Flag), nil
	case KindText:
		return NewText(c.Text), nil
	case KindFunction:
		if c.Function > 0 {
			if c.Function > len(funcs) {
				return Empty, fmt.Errorf("%w: function index %d", ErrImageFormat, c.Function)
			}
			return NewFunction(funcs[c.Function-1], Empty), nil
		}
		ref, ok := reg.Lookup(c.Module, c.Name)
		if !ok {
			return Empty, fmt.Errorf("%w: function %s", ErrImageNative, (&FunctionRef{Name: c.Name, ModulePath: c.Module}).QualifiedName())
		}
		return NewFunction(ref, Empty), nil
	case KindClass:
		mod, ok := reg.Module(c.Name)
		if !ok {
			return Empty, fmt.Errorf("%w: module %s", ErrImageNative, c.Name)
		}
		return NewClassValue(mod), nil
	}
	return Empty, fmt.Errorf("%w: constant kind %d", ErrImageFormat, c.Kind)
}
