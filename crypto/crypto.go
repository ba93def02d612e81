package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/spf13/viper"

	"github.com/reservoir-data/tap-pushbullet/constants"
)

var (
	kmsClient *kms.Client
	localKey  []byte
	useKMS    bool
	once      sync.Once
)

type cryptoObj struct {
	EncryptedData string `json:"encrypted_data"`
}

// InitEncryption initializes decryption from the encryption key; KMS ARNs
// delegate to AWS, anything else derives a local AES-GCM key.
func InitEncryption() error {
	key := viper.GetString(constants.EncryptionKey)
	var initErr error

	once.Do(func() {
		if strings.HasPrefix(key, "arn:aws:kms:") {
			cfg, err := config.LoadDefaultConfig(context.Background())
			if err != nil {
				initErr = fmt.Errorf("failed to load AWS config: %s", err)
				return
			}
			kmsClient = kms.NewFromConfig(cfg)
			useKMS = true
		} else {
			// Local AES-GCM Mode with SHA-256 derived key
			hash := sha256.Sum256([]byte(key))
			localKey = hash[:]
			useKMS = false
		}
	})

	return initErr
}

func Decrypt(cipherData []byte) (string, error) {
	if err := InitEncryption(); err != nil {
		return "", fmt.Errorf("decryption failed: %s", err)
	}
	if useKMS {
		out, err := kmsClient.Decrypt(context.Background(), &kms.DecryptInput{
			CiphertextBlob: cipherData,
		})
		if err != nil {
			return "", fmt.Errorf("decryption failed: %s", err)
		}
		return string(out.Plaintext), nil
	}

	block, err := aes.NewCipher(localKey)
	if err != nil {
		return "", err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := aead.NonceSize()
	if len(cipherData) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := cipherData[:nonceSize], cipherData[nonceSize:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %s", err)
	}

	return string(plaintext), nil
}

// DecryptJSONString unwraps an {"encrypted_data": "<base64>"} document; when
// no encryption key is configured the input passes through untouched.
func DecryptJSONString(encryptedObjStr string) (string, error) {
	if strings.TrimSpace(viper.GetString(constants.EncryptionKey)) == "" {
		return encryptedObjStr, nil
	}

	cryptoObj := cryptoObj{}
	if err := json.Unmarshal([]byte(encryptedObjStr), &cryptoObj); err != nil {
		return "", fmt.Errorf("failed to unmarshal encrypted data: %s", err)
	}

	encryptedData, err := base64.StdEncoding.DecodeString(cryptoObj.EncryptedData)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 data: %s", err)
	}

	decrypted, err := Decrypt(encryptedData)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt data: %s", err)
	}

	return decrypted, nil
}
