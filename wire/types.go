package wire

import "fmt"

// Request is a single varlink method call. At most one of More,
// OneWay and Upgrade may be true.
type Request struct {
	Method     string
	Parameters *Value
	More       bool
	OneWay     bool
	Upgrade    bool
}

// Validate enforces the structural invariant that at most one of
// More, OneWay and Upgrade is set.
func (r Request) Validate() error {
	set := 0
	for _, b := range []bool{r.More, r.OneWay, r.Upgrade} {
		if b {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("wire: at most one of more, oneway, upgrade may be true")
	}
	return nil
}

// Marshal encodes r as the JSON object it appears as on the wire,
// field order method/parameters/more/oneway/upgrade, omitting
// Parameters when nil or null and omitting absent booleans rather
// than emitting them as false.
func (r Request) Marshal() ([]byte, error) {
	pairs := []Pair{{Key: "method", Value: Value{Kind: String, StringVal: r.Method}}}
	if r.Parameters != nil && !r.Parameters.IsNull() {
		pairs = append(pairs, Pair{Key: "parameters", Value: *r.Parameters})
	}
	if r.More {
		pairs = append(pairs, Pair{Key: "more", Value: Value{Kind: Bool, BoolVal: true}})
	}
	if r.OneWay {
		pairs = append(pairs, Pair{Key: "oneway", Value: Value{Kind: Bool, BoolVal: true}})
	}
	if r.Upgrade {
		pairs = append(pairs, Pair{Key: "upgrade", Value: Value{Kind: Bool, BoolVal: true}})
	}
	return Marshal(ObjectFrom(pairs...))
}

// DecodeRequest parses one frame's worth of JSON as a Request. It
// returns an error if the JSON does not decode to an object.
func DecodeRequest(frame []byte) (Request, error) {
	v, err := ParseValue(frame)
	if err != nil {
		return Request{}, err
	}
	if v.Kind != Object {
		return Request{}, fmt.Errorf("wire: request frame is not a JSON object")
	}

	var r Request
	for _, p := range v.ObjectVal {
		switch p.Key {
		case "method":
			if p.Value.Kind != String {
				return Request{}, fmt.Errorf("wire: method is not a string")
			}
			r.Method = p.Value.StringVal
		case "parameters":
			if p.Value.Kind != Object && !p.Value.IsNull() {
				return Request{}, fmt.Errorf("wire: parameters is not an object")
			}
			val := p.Value
			r.Parameters = &val
		case "more":
			b, err := boolField("more", p.Value)
			if err != nil {
				return Request{}, err
			}
			r.More = b
		case "oneway":
			b, err := boolField("oneway", p.Value)
			if err != nil {
				return Request{}, err
			}
			r.OneWay = b
		case "upgrade":
			b, err := boolField("upgrade", p.Value)
			if err != nil {
				return Request{}, err
			}
			r.Upgrade = b
		}
	}
	if r.Method == "" {
		return Request{}, fmt.Errorf("wire: request has no method")
	}
	return r, r.Validate()
}

// Reply is a single varlink reply. If Error is non-empty, Continues
// must be false.
type Reply struct {
	Parameters *Value
	Continues  bool
	Error      string
}

// Validate enforces that Continues and Error are not both set.
func (r Reply) Validate() error {
	if r.Error != "" && r.Continues {
		return fmt.Errorf("wire: continues must be absent when error is set")
	}
	return nil
}

// Marshal encodes r as the JSON object it appears as on the wire,
// field order parameters/continues/error.
func (r Reply) Marshal() ([]byte, error) {
	var pairs []Pair
	if r.Parameters != nil && !r.Parameters.IsNull() {
		pairs = append(pairs, Pair{Key: "parameters", Value: *r.Parameters})
	}
	if r.Continues {
		pairs = append(pairs, Pair{Key: "continues", Value: Value{Kind: Bool, BoolVal: true}})
	}
	if r.Error != "" {
		pairs = append(pairs, Pair{Key: "error", Value: Value{Kind: String, StringVal: r.Error}})
	}
	return Marshal(ObjectFrom(pairs...))
}

// DecodeReply parses one frame's worth of JSON as a Reply.
func DecodeReply(frame []byte) (Reply, error) {
	v, err := ParseValue(frame)
	if err != nil {
		return Reply{}, err
	}
	if v.Kind != Object {
		return Reply{}, fmt.Errorf("wire: reply frame is not a JSON object")
	}

	var r Reply
	for _, p := range v.ObjectVal {
		switch p.Key {
		case "parameters":
			if p.Value.Kind != Object && !p.Value.IsNull() {
				return Reply{}, fmt.Errorf("wire: parameters is not an object")
			}
			val := p.Value
			r.Parameters = &val
		case "continues":
			b, err := boolField("continues", p.Value)
			if err != nil {
				return Reply{}, err
			}
			r.Continues = b
		case "error":
			if p.Value.Kind != String {
				return Reply{}, fmt.Errorf("wire: error is not a string")
			}
			r.Error = p.Value.StringVal
		}
	}
	return r, r.Validate()
}

// boolField reads a wire flag field strictly: anything other than a
// JSON bool is a protocol error rather than a silent false.
func boolField(field string, v Value) (bool, error) {
	if v.Kind != Bool {
		return false, fmt.Errorf("wire: %s is not a bool", field)
	}
	return v.BoolVal, nil
}
