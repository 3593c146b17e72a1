package rtc

// API bundles semi-global settings shared across PeerConnections created
// through it, mirroring the teacher's options-functor construction style.
type API struct {
	settingEngine *SettingEngine
}

// NewAPI creates an API object. Without options a zero-value SettingEngine
// (teacher defaults) is used.
func NewAPI(options ...func(*API)) *API {
	a := &API{}
	for _, o := range options {
		o(a)
	}
	if a.settingEngine == nil {
		a.settingEngine = &SettingEngine{}
	}
	return a
}

// WithSettingEngine allows providing a SettingEngine to the API. Settings
// should not be changed after passing the engine to an API.
func WithSettingEngine(s SettingEngine) func(a *API) {
	return func(a *API) {
		a.settingEngine = &s
	}
}

// NewPeerConnection constructs a PeerConnection using this API's
// SettingEngine and the given Configuration (spec §6 "Construction").
func (a *API) NewPeerConnection(config Configuration) (*PeerConnection, error) {
	return newPeerConnection(config, *a.settingEngine)
}
