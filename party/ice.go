package party

type ICEServer struct {
	URLs       []string `mapstructure:"urls" json:"urls"`
	Username   string   `mapstructure:"username" json:"username,omitempty"`
	Credential string   `mapstructure:"credential" json:"credential,omitempty"`
}

// ICEConfig is handed to browsers and SDK clients as-is. TURN credentials
// come from configuration only.
type ICEConfig struct {
	Servers           []ICEServer `mapstructure:"servers" json:"iceServers"`
	CandidatePoolSize int         `mapstructure:"candidate_pool_size" json:"iceCandidatePoolSize"`
}
