package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// resolveAWSSecretsManager reads a Secrets Manager secret. The reference is
// either name, for the whole secret string, or name#key, for one field of a
// JSON secret.
func resolveAWSSecretsManager(ref string) (string, error) {
	name, key, hasKey := strings.Cut(ref, "#")

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(cfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value (binary secrets not supported)", name)
	}
	if !hasKey {
		return *out.SecretString, nil
	}
	return secretKey(*out.SecretString, name, key)
}

func secretKey(secret, name, key string) (string, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(secret), &data); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", name, err)
	}
	return stringField(data, key, "secret "+name)
}
