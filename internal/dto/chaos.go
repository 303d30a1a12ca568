package dto

// ChaosScenarios mirrors the controller's toggle set in responses.
type ChaosScenarios struct {
	MemoryLeak     bool `json:"memoryLeak"`
	CPUSpike       bool `json:"cpuSpike"`
	DBTimeout      bool `json:"dbTimeout"`
	PoolExhaustion bool `json:"poolExhaustion"`
	AsyncFailure   bool `json:"asyncFailure"`
}

type ChaosStatusResponse struct {
	Scenarios      ChaosScenarios `json:"scenarios"`
	MemoryLeakSize int            `json:"memoryLeakSize"`
}

type SeedDataRequest struct {
	Count int `json:"count"`
}
