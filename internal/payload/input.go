package payload

import "os"

// PublishInput describes how a publish operation's payload content is
// sourced: inline text, a file to read from disk, or neither (which the
// original treats as an empty Text payload rather than an error).
type PublishInput struct {
	Kind         Kind
	Content      string
	Path         string
	ProtoMessage string
}

// Resolve reads the configured content (preferring inline Content over Path)
// and parses it as the declared Kind, mirroring
// read_input_type_content_path/read_from_path in the original payload module.
func (in PublishInput) Resolve(schema *Schema) (Format, error) {
	switch {
	case in.Content != "":
		return Parse(in.Kind, in.ProtoMessage, []byte(in.Content), schema)
	case in.Path != "":
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return Format{}, err
		}
		return Parse(in.Kind, in.ProtoMessage, data, schema)
	default:
		return NewText(""), nil
	}
}
