package vm

// Accessor callbacks. source and index arguments are borrowed; returned
// values carry one ownership unit.
type (
	// PropertyFunc computes a read-only property of the receiver.
	PropertyFunc func(self Value) Value

	// IndexGetter reads source[index]. ok is false when out of range.
	IndexGetter func(source Value, index float64) (Value, bool)

	// IndexSetter writes source[index] = value and returns the resulting
	// container, which is source itself unless the class is copy-on-write.
	IndexSetter func(source Value, index float64, value Value) Value

	// TextGetter reads source[key].
	TextGetter func(source Value, key string) (Value, bool)

	// TextSetter writes source[key] = value and returns the resulting
	// container.
	TextSetter func(source Value, key string, value Value) Value
)

// Class is a capability object: the set of methods, properties and
// indexers a kind of value supports. Native modules are classes too, which
// is what lets `gç.satıryaz(x)` and `gç::satıryaz(x)` reach the same
// function.
type Class struct {
	Name string

	methods     map[string]*FunctionRef
	methodOrder []string
	properties  map[string]PropertyFunc
	propOrder   []string

	getter     IndexGetter
	setter     IndexSetter
	textGetter TextGetter
	textSetter TextSetter
}

// NewClass creates an empty class.
func NewClass(name string) *Class {
	return &Class{
		Name:       name,
		methods:    make(map[string]*FunctionRef),
		properties: make(map[string]PropertyFunc),
	}
}

// AddMethod registers a native method. A nil params slice makes it
// variadic. Methods of a module class carry the module path so that they
// print and compare as module functions.
func (c *Class) AddMethod(name string, params []string, fn NativeFunc) *FunctionRef {
	var path []string
	if c.Name != "" {
		path = []string{c.Name}
	}
	ref := NewNativeFunction(name, path, params, fn)
	if _, exists := c.methods[name]; !exists {
		c.methodOrder = append(c.methodOrder, name)
	}
	c.methods[name] = ref
	return ref
}

// AddProperty registers a read-only property.
func (c *Class) AddProperty(name string, fn PropertyFunc) {
	if _, exists := c.properties[name]; !exists {
		c.propOrder = append(c.propOrder, name)
	}
	c.properties[name] = fn
}

// SetIndexer installs the numeric indexer pair.
func (c *Class) SetIndexer(get IndexGetter, set IndexSetter) {
	c.getter = get
	c.setter = set
}

// SetTextIndexer installs the text-keyed indexer pair.
func (c *Class) SetTextIndexer(get TextGetter, set TextSetter) {
	c.textGetter = get
	c.textSetter = set
}

// Method looks up a method by name.
func (c *Class) Method(name string) (*FunctionRef, bool) {
	m, ok := c.methods[name]
	return m, ok
}

// Property looks up a property by name.
func (c *Class) Property(name string) (PropertyFunc, bool) {
	p, ok := c.properties[name]
	return p, ok
}

// Methods returns method names in registration order.
func (c *Class) Methods() []string { return c.methodOrder }

// Properties returns property names in registration order.
func (c *Class) Properties() []string { return c.propOrder }

// Getter returns the numeric index getter, if any.
func (c *Class) Getter() IndexGetter { return c.getter }

// Setter returns the numeric index setter, if any.
func (c *Class) Setter() IndexSetter { return c.setter }

// TextGetter returns the text-keyed getter, if any.
func (c *Class) TextGetter() TextGetter { return c.textGetter }

// TextSetter returns the text-keyed setter, if any.
func (c *Class) TextSetter() TextSetter { return c.textSetter }

// ---------------------------------------------------------------------------
// Per-VM class table
// ---------------------------------------------------------------------------

// Classes holds one class per variant kind.
type Classes struct {
	Text     *Class
	List     *Class
	Dict     *Class
	Number   *Class
	Bool     *Class
	Empty    *Class
	Function *Class
}

func newClasses() Classes {
	return Classes{
		Text:     newTextClass(),
		List:     newListClass(),
		Dict:     newDictClass(),
		Number:   newNumberClass(),
		Bool:     NewClass("mantıksal"),
		Empty:    NewClass("boş"),
		Function: NewClass("fonksiyon"),
	}
}

// classOf is a closed switch over variant kinds. A Class variant answers
// with itself so module members resolve like methods.
func (cs *Classes) classOf(v Value) *Class {
	switch v.Kind() {
	case KindNumber:
		return cs.Number
	case KindBool:
		return cs.Bool
	case KindText:
		return cs.Text
	case KindList:
		return cs.List
	case KindDict:
		return cs.Dict
	case KindFunction:
		return cs.Function
	case KindClass:
		if obj := v.Variant(); obj != nil && obj.Class != nil {
			return obj.Class
		}
	}
	return cs.Empty
}
