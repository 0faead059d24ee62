package config

// DefaultAllowedOrigins are the browser origins permitted by CORS.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"https://agro-vision-ai-six.vercel.app",
	"http://agro-vision-ai-six.vercel.app",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 10
	}
	if cfg.Crop.ModelPath == "" {
		cfg.Crop.ModelPath = "/usr/local/var/agrovision/models/crop_recommendation.onnx"
	}
	if cfg.Crop.LabelsPath == "" {
		cfg.Crop.LabelsPath = "/usr/local/var/agrovision/models/crop_labels.json"
	}
	if cfg.Crop.InputName == "" {
		cfg.Crop.InputName = "float_input"
	}
	if cfg.Crop.OutputName == "" {
		cfg.Crop.OutputName = "probabilities"
	}
	if cfg.Crop.CacheSize == 0 {
		cfg.Crop.CacheSize = 1024
	}
	if cfg.Disease.ModelPath == "" {
		cfg.Disease.ModelPath = "/usr/local/var/agrovision/models/plant_disease.onnx"
	}
	if cfg.Disease.ClassesPath == "" {
		cfg.Disease.ClassesPath = "/usr/local/var/agrovision/models/class_names.json"
	}
	if cfg.Disease.InputName == "" {
		cfg.Disease.InputName = "input"
	}
	if cfg.Disease.OutputName == "" {
		cfg.Disease.OutputName = "output"
	}
	if cfg.Disease.ImageSize == 0 {
		cfg.Disease.ImageSize = 224
	}
	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "llama-3.1-8b-instant"
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.4
	}
	if cfg.Chat.APIKeyEnv == "" {
		cfg.Chat.APIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.Chat.EnvFile == "" {
		cfg.Chat.EnvFile = "./.env"
	}
	if cfg.UI.Host == "" {
		cfg.UI.Host = "localhost"
	}
	if cfg.UI.Port == 0 {
		cfg.UI.Port = 8501
	}
	if cfg.UI.BackendURL == "" {
		cfg.UI.BackendURL = "http://127.0.0.1:8000"
	}
}
