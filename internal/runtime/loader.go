package runtime

import "github.com/rs/zerolog"

// Load selects the runtime for this process. When graphPath is non-empty the
// portable-graph runtime is tried first; any failure there (capability not
// built, malformed file, runtime-internal error) logs a diagnostic and falls
// back to the statistical path. The fallback is invisible to callers. A
// statistical-path failure is fatal.
func Load(modelPath, graphPath string, log zerolog.Logger) (Runtime, error) {
	if graphPath != "" {
		rt, err := loadGraph(graphPath)
		if err == nil {
			log.Info().Str("path", graphPath).Msg("runtime: onnx")
			return rt, nil
		}
		log.Warn().Err(err).Str("path", graphPath).Msg("onnx load failed, falling back to statistical runtime")
	}
	rt, err := LoadStatistical(modelPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", modelPath).Msg("runtime: statistical")
	return rt, nil
}
