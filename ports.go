package pipeline

// ResolvePorts turns a tool definition's declared schemas into ordered
// input and output port lists. A missing or unrecognised type resolves to
// TypeString.
func ResolvePorts(def *ToolDefinition) (inputs, outputs []Port, err error) {
	if def == nil {
		return nil, nil, &DefinitionError{Msg: "definition is nil"}
	}
	if def.Name == "" {
		return nil, nil, &DefinitionError{Msg: "missing name"}
	}
	if inputs, err = resolveFields(def.Name, Input, def.InputSchema); err != nil {
		return nil, nil, err
	}
	if outputs, err = resolveFields(def.Name, Output, def.OutputSchema); err != nil {
		return nil, nil, err
	}
	return inputs, outputs, nil
}

func resolveFields(tool string, dir Direction, fields []SchemaField) ([]Port, error) {
	ports := make([]Port, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, &DefinitionError{Tool: tool, Msg: string(dir) + " port without a name"}
		}
		if _, dup := seen[f.Name]; dup {
			return nil, &DefinitionError{Tool: tool, Msg: "duplicate " + string(dir) + " port " + f.Name}
		}
		seen[f.Name] = struct{}{}

		dt, ok := ParseDataType(f.Type)
		if !ok {
			dt = TypeString
		}
		ports = append(ports, Port{Name: f.Name, Direction: dir, DataType: dt})
	}
	return ports, nil
}
