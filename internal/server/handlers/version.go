package handlers

import (
	"net/http"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/api"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/version"
)

// VersionResponse is the build information of the running viewer.
type VersionResponse struct {
	Service   string `json:"service" example:"certviewer-server"`
	Version   string `json:"version" example:"v1.2.0"`
	BuildDate string `json:"buildDate" example:"2026-10-01T08:15:00Z"`
	GitCommit string `json:"gitCommit" example:"4f1c2a9"`
	GoVersion string `json:"goVersion" example:"go1.25.4"`
}

// HandleVersion godoc
//
//	@Summary		Get version information
//	@Description	Returns the build of the viewer: release, build date, commit and Go toolchain
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	VersionResponse	"Version information"
//	@Router			/version [get]
func HandleVersion(service string, info version.Info) http.HandlerFunc {
	response := VersionResponse{
		Service:   service,
		Version:   info.Version,
		BuildDate: info.BuildDate,
		GitCommit: info.GitCommit,
		GoVersion: info.GoVersion,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithJSONPayload(w, http.StatusOK, response)
	}
}
