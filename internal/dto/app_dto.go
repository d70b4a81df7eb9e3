package dto

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Libraries   int    `json:"libraries"`
}

// VersionResponse 版本信息响应
type VersionResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitTag    string `json:"gitTag"`
	BuildTime string `json:"buildTime"`
}
