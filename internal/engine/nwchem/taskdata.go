package nwchem

import "github.com/ash399/litesoph/internal/store"

// taskData fixes the per-task-type file layout: input/log file stems,
// statically required artifacts and the strings whose presence marks a
// healthy log.
type taskData struct {
	fileName   string
	simulation bool
	required   []string
	checkList  []string
}

const (
	geometryFile = "coordinate.xyz"
	restartDir   = "nwchem/restart"

	inputExt = ".nwi"
	logExt   = ".nwo"
)

var taskTable = map[store.TaskType]taskData{
	store.TaskGroundState: {
		fileName:   "gs",
		simulation: true,
		required:   []string{geometryFile, restartDir},
		checkList:  []string{"Converged", "Fermi level:", "Total:"},
	},
	store.TaskRTTDDFTDelta: {
		fileName:   "td",
		simulation: true,
		required:   []string{geometryFile, restartDir},
		checkList:  []string{"Converged", "Fermi level:", "Total:"},
	},
	store.TaskRTTDDFTLaser: {
		fileName:   "tdlaser",
		simulation: true,
		required:   []string{geometryFile, restartDir},
		checkList:  []string{"Converged", "Fermi level:", "Total:"},
	},
	store.TaskSpectrum:     {},
	store.TaskMOPopulation: {},
	store.TaskPumpProbe:    {},
}
