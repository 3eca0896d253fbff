package backend

import (
	"github.com/gogpu/framegraph/recording"
)

func init() {
	Register(NameRecording, func() (Device, error) {
		return recording.New(), nil
	})
}
