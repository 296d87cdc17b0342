package core

type Conf struct {
	Version             string `long:"version" description:"version of the sdk client" env:"QI_SDK_VERSION"`
	DevMode             bool   `long:"dev-mode" description:"run in dev mode" env:"QI_SDK_DEV_MODE"`
	DisableStdoutLog    bool   `long:"disable-stdout-log" description:"do not log in standard output" env:"QI_SDK_DISABLE_STDOUT_LOG"`
	EnableFileLog       bool   `long:"enable-file-log" description:"enable log in file" env:"QI_SDK_ENABLE_FILE_LOG"`
	LogDir              string `long:"log-dir" description:"rotating log file dir" default:"./logs" env:"QI_SDK_LOG_DIR"`
	LogLevel            string `long:"log-level" description:"log level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" env:"QI_SDK_LOG_LEVEL"`
	LogRotationMaxDays  int    `long:"log-rotation-max-days" description:"max days of log rotation" default:"7" env:"QI_SDK_LOG_ROTATION_MAX_DAYS"`
	SettingPath         string `long:"setting-path" description:"setting file path" default:"./setting/setting.toml" env:"QI_SDK_SETTING_PATH"`
	Shots               int    `long:"shots" description:"number of shots per job" default:"1024" env:"QI_SDK_SHOTS"`
	MaxShots            int    `long:"max-shots" description:"shot limit of the target backend" default:"4096" env:"QI_SDK_MAX_SHOTS"`
	DisableFSP          bool   `long:"disable-fsp" description:"disable full-state projection" env:"QI_SDK_DISABLE_FSP"`
	TranslateWorkerSize int    `long:"translate-worker-size" description:"number of concurrent translation workers" default:"4" env:"QI_SDK_TRANSLATE_WORKER_SIZE"`
}
