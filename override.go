package polyfill

// Override returns a copy of cfg with the browser polyfills merged in:
//
//   - the fallback table gains the disabled server modules and the polyfill
//     package paths, replacing existing entries with the same name;
//   - a ProvidePlugin binding process and Buffer is appended to the plugins;
//   - the alias table maps "process" to the process polyfill.
//
// cfg is not modified. env is accepted for parity with the host's override
// hook and does not change the result. A nil cfg or a cfg without Resolve
// fails with a *ConfigError.
func (o *Overrider) Override(cfg *BuildConfig, env Environment) (*BuildConfig, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	out := cfg.Clone()

	for name, fb := range o.fallback {
		out.Resolve.Fallback[name] = fb
	}
	out.Plugins = append(out.Plugins, o.provide())
	out.Resolve.Alias[ProcessAlias] = o.processPath

	return out, nil
}

func (o *Overrider) provide() *ProvidePlugin {
	return &ProvidePlugin{
		Globals: map[string]ProvideTarget{
			"process": {Module: o.processPath},
			"Buffer":  {Module: o.bufferPath, Export: "Buffer"},
		},
	}
}
