package handler

import (
	"errors"

	certmodels "esign/internal/certificate/models"
	kycmodels "esign/internal/kyc/models"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/platform/dialog"
)

const (
	confirmOK    = "Mengerti"
	confirmRetry = "Coba Lagi"
	confirmRenew = "Perpanjang Sertifikat"
)

var invalidRequestDialog = dialog.Dialog{
	Type:        dialog.TypeWarning,
	Title:       "Data Tidak Valid",
	Description: "Periksa kembali data yang Anda kirim lalu coba lagi.",
	ConfirmText: confirmOK,
}

// badRequestMessages localizes the validation messages users can act on.
var badRequestMessages = map[string]string{
	"video payload is required":                  "Video verifikasi wajib dikirim.",
	"action must be verify or renewal":           "Jenis verifikasi tidak dikenali.",
	"session user id is missing":                 "Sesi Anda tidak lengkap. Silakan masuk kembali.",
	"session email is missing":                   "Email akun Anda belum tersedia. Lengkapi profil lalu coba lagi.",
	"phone is required":                          "Nomor telepon wajib diisi.",
	"nik must be 16 digits":                      "NIK harus terdiri dari 16 digit angka.",
	"ktp document is required":                   "Foto KTP wajib diunggah.",
	"npwp document is required when npwp is set": "Foto NPWP wajib diunggah jika NPWP diisi.",
	"uploaded document was not found":            "Dokumen yang Anda unggah tidak ditemukan. Silakan unggah ulang.",
}

// badRequestDialog names what was wrong with the request. Messages without a
// translation are shown as they are; they are already part of the response body.
func badRequestDialog(message string) dialog.Dialog {
	d := invalidRequestDialog
	if localized, ok := badRequestMessages[message]; ok {
		d.Description = localized
	} else if message != "" {
		d.Description = message
	}
	return d
}

func statusDialog(status certmodels.Status) dialog.Dialog {
	switch status {
	case certmodels.StatusValid:
		return dialog.Dialog{
			Type:        dialog.TypeSuccess,
			Title:       "Sertifikat Aktif",
			Description: "Sertifikat elektronik Anda aktif dan dapat digunakan.",
			ConfirmText: confirmOK,
		}
	case certmodels.StatusAlmostExpired:
		return dialog.Dialog{
			Type:        dialog.TypeWarning,
			Title:       "Sertifikat Segera Berakhir",
			Description: "Sertifikat elektronik Anda akan segera berakhir. Lakukan perpanjangan melalui verifikasi video.",
			ConfirmText: confirmRenew,
		}
	case certmodels.StatusExpired:
		return dialog.Dialog{
			Type:        dialog.TypeWarning,
			Title:       "Sertifikat Kedaluwarsa",
			Description: "Sertifikat elektronik Anda telah berakhir. Lakukan perpanjangan untuk melanjutkan tanda tangan.",
			ConfirmText: confirmRenew,
		}
	default:
		return dialog.Dialog{
			Type:        dialog.TypeInfo,
			Title:       "Status Belum Diketahui",
			Description: "Status sertifikat Anda belum tersedia.",
			ConfirmText: confirmOK,
		}
	}
}

// errorDialog maps a failure to user-facing text. Only provider descriptions
// are passed through; internal details never are.
func errorDialog(err error) dialog.Dialog {
	var rejected *kycmodels.ProviderRejectedError
	if errors.As(err, &rejected) {
		desc := rejected.Description
		if desc == "" {
			desc = "Permintaan Anda ditolak oleh Peruri."
		}
		return dialog.Dialog{Type: dialog.TypeError, Title: "Permintaan Ditolak", Description: desc, ConfirmText: confirmOK}
	}

	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		return internalErrorDialog
	}
	switch domainErr.Code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return badRequestDialog(domainErr.Message)
	case dErrors.CodeUnauthorized:
		return dialog.Dialog{
			Type:        dialog.TypeWarning,
			Title:       "Sesi Berakhir",
			Description: "Silakan masuk kembali untuk melanjutkan.",
			ConfirmText: confirmOK,
		}
	case dErrors.CodeTimeout:
		return dialog.Dialog{
			Type:        dialog.TypeError,
			Title:       "Waktu Habis",
			Description: "Peruri tidak merespons tepat waktu. Silakan coba lagi beberapa saat lagi.",
			ConfirmText: confirmRetry,
		}
	case dErrors.CodeUnavailable:
		return dialog.Dialog{
			Type:        dialog.TypeError,
			Title:       "Layanan Tidak Tersedia",
			Description: "Layanan Peruri sedang tidak dapat dihubungi. Silakan coba lagi.",
			ConfirmText: confirmRetry,
		}
	default:
		return internalErrorDialog
	}
}

var internalErrorDialog = dialog.Dialog{
	Type:        dialog.TypeError,
	Title:       "Terjadi Kesalahan",
	Description: "Terjadi kesalahan pada sistem. Silakan coba lagi.",
	ConfirmText: confirmRetry,
}

func isDomainError(err error) bool {
	var domainErr *dErrors.Error
	return errors.As(err, &domainErr)
}
