package service

import "esign/pkg/platform/dialog"

const confirmOK = "Mengerti"

var (
	verifiedDialog = dialog.Dialog{
		Type:        dialog.TypeSuccess,
		Title:       "Verifikasi Berhasil",
		Description: "Verifikasi video Anda berhasil. Akun Anda siap untuk tanda tangan elektronik.",
		ConfirmText: confirmOK,
	}
	renewedDialog = dialog.Dialog{
		Type:        dialog.TypeSuccess,
		Title:       "Sertifikat Diperbarui",
		Description: "Sertifikat elektronik Anda telah diperpanjang.",
		ConfirmText: confirmOK,
	}
	registeredDialog = dialog.Dialog{
		Type:        dialog.TypeSuccess,
		Title:       "Registrasi Terkirim",
		Description: "Data registrasi sertifikat elektronik Anda telah dikirim ke Peruri.",
		ConfirmText: confirmOK,
	}
)

func pendingReviewDialog(providerDesc string) dialog.Dialog {
	desc := providerDesc
	if desc == "" {
		desc = "Video Anda sedang ditinjau secara manual. Silakan periksa kembali dalam 1x24 jam."
	}
	return dialog.Dialog{
		Type:        dialog.TypeInfo,
		Title:       "Verifikasi Sedang Ditinjau",
		Description: desc,
		ConfirmText: confirmOK,
	}
}
