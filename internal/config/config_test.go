package config

import (
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_InvalidDefaultTier(t *testing.T) {
	cfg := Defaults()
	cfg.Security.DefaultTier = "blocked"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for defaultTier=blocked")
	}
}

func TestValidate_ValidDefaultTiers(t *testing.T) {
	for _, tier := range []string{"safe", "privileged"} {
		cfg := Defaults()
		cfg.Security.DefaultTier = tier
		if err := Validate(cfg); err != nil {
			t.Fatalf("defaultTier %q should be valid: %v", tier, err)
		}
	}
}

func TestValidate_InvalidExecutorTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Executor.TimeoutSeconds = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for executor timeout=0")
	}
}

func TestValidate_MaxOutputTooSmall(t *testing.T) {
	cfg := Defaults()
	cfg.Executor.MaxOutputBytes = 100
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxOutputBytes=100")
	}
}

func TestValidate_EmptyProviderURL(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.URL = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty provider URL")
	}
}

func TestValidate_MaxFixAttempts_Boundary(t *testing.T) {
	cfg := Defaults()

	cfg.General.MaxFixAttempts = 0
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxFixAttempts=0 should be valid: %v", err)
	}

	cfg.General.MaxFixAttempts = 11
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxFixAttempts=11")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for logLevel=verbose")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.Provider.Model = "test-model"
	original.Security.SkipConfirmation = true

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Provider.Model != "test-model" {
		t.Fatalf("expected 'test-model', got %q", loaded.Provider.Model)
	}
	if !loaded.Security.SkipConfirmation {
		t.Fatal("expected skipConfirmation=true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"executor": {
			"timeoutSeconds": 0
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for executor.timeoutSeconds=0")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{"provider": {"model": "mistral"}}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.Model != "mistral" {
		t.Fatalf("expected 'mistral', got %q", cfg.Provider.Model)
	}
	if cfg.Executor.TimeoutSeconds != 30 {
		t.Fatalf("expected default executor timeout 30, got %d", cfg.Executor.TimeoutSeconds)
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "provider.url")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "http://localhost:11434" {
		t.Fatalf("expected default URL, got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "provider.model", "qwen2.5"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Provider.Model != "qwen2.5" {
		t.Fatalf("expected 'qwen2.5', got %q", cfg.Provider.Model)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "security.skipConfirmation", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if !cfg.Security.SkipConfirmation {
		t.Fatal("expected security.skipConfirmation=true")
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "executor.timeoutSeconds", "45"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Executor.TimeoutSeconds != 45 {
		t.Fatalf("expected 45, got %d", cfg.Executor.TimeoutSeconds)
	}
}

func TestSetByPath_RejectsInvalidValue(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "security.defaultTier", "blocked"); err == nil {
		t.Fatal("expected validation error for defaultTier=blocked")
	}
	if cfg.Security.DefaultTier != "safe" {
		t.Fatalf("config mutated despite rejected set: %q", cfg.Security.DefaultTier)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if len(paths) == 0 {
		t.Fatal("expected non-empty paths")
	}

	for _, expected := range []string{"provider.model", "security.defaultTier", "history.enabled"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_MODEL_NAME", "llama3.2")
	result := ExpandEnvVars(`{"model": "${TEST_MODEL_NAME}"}`)
	expected := `{"model": "llama3.2"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"url": "${NONEXISTENT_VAR_12345:-http://localhost:11434}"}`)
	expected := `{"url": "http://localhost:11434"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_SetVarOverridesDefault(t *testing.T) {
	t.Setenv("MY_URL", "http://remote:11434")
	result := ExpandEnvVars(`"${MY_URL:-http://localhost:11434}"`)
	expected := `"http://remote:11434"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")
	result := ExpandEnvVars(`"${EMPTY_VAR:-fallback}"`)
	expected := `"fallback"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_ITASSIST_MODEL", "codellama")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{"provider": {"model": "${TEST_ITASSIST_MODEL}"}}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.Model != "codellama" {
		t.Fatalf("expected model 'codellama', got %q", cfg.Provider.Model)
	}
}

// --- Defaults ---

func TestDefaults_ReturnsValidConfig(t *testing.T) {
	cfg := Defaults()
	if cfg == nil {
		t.Fatal("defaults returned nil")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.Security.DefaultTier != "safe" {
		t.Fatalf("default tier should be 'safe', got %q", cfg.Security.DefaultTier)
	}
	if cfg.History.MaxHistoryPerConversation != 50 {
		t.Fatalf("default history cap should be 50, got %d", cfg.History.MaxHistoryPerConversation)
	}
}
