package envvar

const (
	// ToolvisionEnv is the environment variable used to determine the environment
	ToolvisionEnv = "TOOLVISION_ENV"

	// ToolvisionWorkDir is the environment variable used to override the working directory
	// holding datasets and training runs
	ToolvisionWorkDir = "TOOLVISION_WORK_DIR"

	// RoboflowAPIKey is the environment variable holding the Roboflow API key
	RoboflowAPIKey = "ROBOFLOW_API_KEY"

	// CUDAVisibleDevices restricts the GPUs visible to the training framework
	CUDAVisibleDevices = "CUDA_VISIBLE_DEVICES"
)
